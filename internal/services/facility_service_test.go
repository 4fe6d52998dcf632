package services

import (
	"context"
	"testing"

	"github.com/isdelr/airmove-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func facilityIDs(facilities []models.Facility) []string {
	ids := make([]string, 0, len(facilities))
	for _, f := range facilities {
		ids = append(ids, f.ID)
	}
	return ids
}

func TestListFacilities(t *testing.T) {
	ctx := context.Background()
	svc := NewFacilityService(newTestDB(t))

	all, err := svc.ListFacilities(ctx, models.FacilityFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 10)
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Name, all[i].Name, "facilities are ordered by name")
	}

	tests := []struct {
		name   string
		filter models.FacilityFilter
		want   []string
	}{
		{"terminal", models.FacilityFilter{Terminal: "T2", Floor: "1F"}, []string{"fac-acc-t2-1f"}},
		{"category gate", models.FacilityFilter{Category: models.CategoryGate}, []string{"fac-gate-t1-12", "fac-gate-t2-250"}},
		{"all floors", models.FacilityFilter{Terminal: "T2", Floor: "ALL", Category: "all", Query: "roaming"}, []string{"fac-phone-t2-b1"}},
		{"search by location", models.FacilityFilter{Query: "food court"}, []string{"fac-rest-t1-4f"}},
		{"no match", models.FacilityFilter{Query: "zzz"}, []string{}},
		{"case insensitive", models.FacilityFilter{Query: "NURSING"}, []string{"fac-baby-t1-3f"}},
		{"percent is literal", models.FacilityFilter{Query: "%"}, []string{}},
		{"underscore is literal", models.FacilityFilter{Query: "_"}, []string{}},
		{"hyphen in name", models.FacilityFilter{Query: "wi-fi"}, []string{"fac-wifi-t2-3f"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ListFacilities(ctx, tt.filter)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, facilityIDs(got))
		})
	}
}

func TestListFacilities_UnknownFilterValues(t *testing.T) {
	svc := NewFacilityService(newTestDB(t))

	for _, filter := range []models.FacilityFilter{
		{Category: "casino"},
		{Terminal: "T9"},
		{Floor: "9F"},
	} {
		_, err := svc.ListFacilities(context.Background(), filter)
		assert.ErrorIs(t, err, ErrValidation, "%+v", filter)
	}
}

func TestGetFacilityByID(t *testing.T) {
	ctx := context.Background()
	svc := NewFacilityService(newTestDB(t))

	f, err := svc.GetFacilityByID(ctx, "fac-cafe-t1-3f")
	require.NoError(t, err)
	assert.Equal(t, models.CategoryCafe, f.Category)
	assert.Equal(t, "T1", f.Terminal)
	assert.Equal(t, models.Coordinates{X: 420, Y: 310}, f.Coordinates)
	assert.NotNil(t, f.Images)

	_, err = svc.GetFacilityByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListDevices(t *testing.T) {
	ctx := context.Background()
	svc := NewDeviceService(newTestDB(t))

	all, err := svc.ListDevices(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Equal(t, "JA1456", all[0].ID)

	available, err := svc.ListDevices(ctx, true)
	require.NoError(t, err)
	assert.Len(t, available, 4)
	for _, d := range available {
		assert.NotEqual(t, "JA1890", d.ID)
	}

	d, err := svc.GetDeviceByID(ctx, "JA2034")
	require.NoError(t, err)
	assert.Equal(t, models.DeviceKickboard, d.Type)
	assert.Equal(t, 65, d.BatteryLevel)

	_, err = svc.GetDeviceByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	svc := NewEventService(newTestDB(t))

	subject := "s1"
	require.NoError(t, svc.CreateEvent(ctx, "first", "info", "one", nil))
	require.NoError(t, svc.CreateEvent(ctx, "second", "warn", "two", &subject))

	events, err := svc.GetRecentEvents(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "second", events[0].Type)
	require.NotNil(t, events[0].SubjectID)
	assert.Equal(t, "s1", *events[0].SubjectID)
}
