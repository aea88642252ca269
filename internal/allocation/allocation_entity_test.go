package allocation_test

import (
	"reflect"
	"testing"

	"leavehub/internal/allocation"

	"github.com/stretchr/testify/assert"
)

// One balance row per company, employee, leave type and period; the
// dedupe index has to carry all four columns.
func TestAllocationUniqueIndexIsCompanyScoped(t *testing.T) {
	typ := reflect.TypeOf(allocation.Allocation{})

	for _, name := range []string{"CompanyID", "EmployeeID", "LeaveTypeID", "Period"} {
		field, ok := typ.FieldByName(name)
		assert.True(t, ok, "field %s missing", name)
		assert.Contains(t, field.Tag.Get("gorm"), "uniqueIndex:uq_allocations_employee_type_period",
			"field %s is outside the dedupe index", name)
	}
}
