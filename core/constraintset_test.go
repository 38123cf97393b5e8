package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstraintSet_DefaultsAdmitEverything(t *testing.T) {
	cs := NewConstraintSet()
	tm := time.Date(2024, time.February, 29, 13, 37, 0, 0, time.Local)
	assert.True(t, cs.Admit(tm))
}

func TestConstraintSet_FirstMentionClears(t *testing.T) {
	cs := NewConstraintSet()
	require.NoError(t, cs.AddRange(CategoryMonth, 6, 6))

	for m := 1; m <= 12; m++ {
		if m == 6 {
			assert.True(t, cs.MonthAdmitted(m))
		} else {
			assert.False(t, cs.MonthAdmitted(m), "month %d should no longer be admitted", m)
		}
	}
}

func TestConstraintSet_WrapRange(t *testing.T) {
	cs := NewConstraintSet()
	require.NoError(t, cs.AddRange(CategoryMonth, 11, 2))

	admitted := map[int]bool{11: true, 12: true, 1: true, 2: true}
	for m := 1; m <= 12; m++ {
		assert.Equal(t, admitted[m], cs.MonthAdmitted(m), "month %d", m)
	}
}

func TestConstraintSet_AddRange_RejectsOutOfBounds(t *testing.T) {
	cs := NewConstraintSet()
	err := cs.AddRange(CategoryMonth, 0, 5)
	assert.Error(t, err)
	// rejected range must not have cleared the bitmap
	assert.True(t, cs.MonthAdmitted(7))
}

func TestConstraintSet_AddRange_RejectsFullWildcard(t *testing.T) {
	cs := NewConstraintSet()
	err := cs.AddRange(CategoryMDay, 1, 31)
	assert.Error(t, err)
}

func TestConstraintSet_HHMMRange(t *testing.T) {
	cs := NewConstraintSet()
	require.NoError(t, cs.AddRange(CategoryHHMM, 9*60, 9*60+59))
	require.NoError(t, cs.AddRange(CategoryHHMM, 17*60, 17*60+59))

	assert.True(t, cs.HHMMAdmitted(9*60+30))
	assert.False(t, cs.HHMMAdmitted(12*60))
	assert.True(t, cs.HHMMAdmitted(17*60))
}

func TestConstraintSet_HourThenMinuteRefines(t *testing.T) {
	cs := NewConstraintSet()
	require.NoError(t, cs.AddHourRange(9, 10))
	require.NoError(t, cs.RestrictMinuteWithinHours(9, 10, 15, 45))

	assert.False(t, cs.HHMMAdmitted(9*60+0))
	assert.True(t, cs.HHMMAdmitted(9*60+30))
	assert.True(t, cs.HHMMAdmitted(10*60+45))
	assert.False(t, cs.HHMMAdmitted(10*60+50))
	assert.False(t, cs.HHMMAdmitted(11*60+30))
}

func TestConstraintSet_BareMinuteAppliesAcrossAllHours(t *testing.T) {
	cs := NewConstraintSet()
	require.NoError(t, cs.AddMinuteEveryHour(0, 4))

	assert.True(t, cs.HHMMAdmitted(0*60+2))
	assert.True(t, cs.HHMMAdmitted(23*60+4))
	assert.False(t, cs.HHMMAdmitted(23*60+5))
}

func TestConstraintSet_WeekdayNumbering(t *testing.T) {
	// Monday=1 ... Sunday=7
	mon := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.Local)
	sun := time.Date(2024, time.June, 9, 0, 0, 0, 0, time.Local)
	assert.Equal(t, 1, isoWeekday(mon))
	assert.Equal(t, 7, isoWeekday(sun))
}
