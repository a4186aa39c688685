package service

import (
	"testing"
	"time"
	"wfm-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultAttendanceConfig() AttendanceConfig {
	return AttendanceConfig{
		TickMaxDiff:  2 * time.Hour,
		MaxWorkShift: 16 * time.Hour,
	}
}

func TestHandleTick_ComingOpensFact(t *testing.T) {
	f := newFixture(t)
	svc := f.attendanceService(defaultAttendanceConfig())

	dt := date(2024, 3, 11)
	f.createWorkDay(t, dt, false, true, models.TypeWorkday,
		ptr(at(2024, 3, 11, 8, 0)), ptr(at(2024, 3, 11, 20, 0)))

	record, err := svc.HandleTick(TickParams{
		UserID: f.user.ID,
		ShopID: f.shop.ID,
		Dttm:   at(2024, 3, 11, 7, 59),
	})
	require.NoError(t, err)

	// Тип выведен по ближайшему краю плана, событие привязано к дате плана
	assert.Equal(t, models.TickComing, record.Type)
	require.NotNil(t, record.Dt)
	assert.Equal(t, dt, *record.Dt)
	require.NotNil(t, record.EmployeeID)
	assert.Equal(t, f.employee.ID, *record.EmployeeID)

	fact, err := f.workDayRepo.GetVersion(f.employee.ID, dt, true, true)
	require.NoError(t, err)
	require.NotNil(t, fact)
	assert.True(t, fact.IsOpenFact())
	assert.Equal(t, at(2024, 3, 11, 7, 59), *fact.DttmWorkStart)
	// Открытая смена часов не даёт
	assert.True(t, fact.WorkHours.IsZero())

	// Зеркальная неподтверждённая версия создана
	mirror, err := f.workDayRepo.GetVersion(f.employee.ID, dt, true, false)
	require.NoError(t, err)
	require.NotNil(t, mirror)
	assert.Equal(t, *fact.DttmWorkStart, *mirror.DttmWorkStart)
}

func TestHandleTick_LeavingClosesFact(t *testing.T) {
	f := newFixture(t)
	svc := f.attendanceService(defaultAttendanceConfig())

	dt := date(2024, 3, 11)
	f.createWorkDay(t, dt, false, true, models.TypeWorkday,
		ptr(at(2024, 3, 11, 8, 0)), ptr(at(2024, 3, 11, 20, 0)))

	_, err := svc.HandleTick(TickParams{
		UserID: f.user.ID, ShopID: f.shop.ID, Dttm: at(2024, 3, 11, 8, 2),
	})
	require.NoError(t, err)

	record, err := svc.HandleTick(TickParams{
		UserID: f.user.ID, ShopID: f.shop.ID, Dttm: at(2024, 3, 11, 20, 2),
	})
	require.NoError(t, err)
	assert.Equal(t, models.TickLeaving, record.Type)

	fact, err := f.workDayRepo.GetVersion(f.employee.ID, dt, true, true)
	require.NoError(t, err)
	require.NotNil(t, fact)
	assert.False(t, fact.IsOpenFact())
	assert.Equal(t, at(2024, 3, 11, 20, 2), *fact.DttmWorkEnd)
	assert.True(t, fact.WorkHours.GreaterThan(decimal.Zero))
}

func TestHandleTick_ComingNeverMovesStartLater(t *testing.T) {
	f := newFixture(t)
	svc := f.attendanceService(defaultAttendanceConfig())

	dt := date(2024, 3, 11)
	f.createWorkDay(t, dt, false, true, models.TypeWorkday,
		ptr(at(2024, 3, 11, 8, 0)), ptr(at(2024, 3, 11, 20, 0)))

	_, err := svc.HandleTick(TickParams{
		UserID: f.user.ID, ShopID: f.shop.ID, Dttm: at(2024, 3, 11, 7, 55),
		Type: models.TickComing,
	})
	require.NoError(t, err)

	// Повторный приход позже первого не сдвигает начало
	_, err = svc.HandleTick(TickParams{
		UserID: f.user.ID, ShopID: f.shop.ID, Dttm: at(2024, 3, 11, 9, 0),
		Type: models.TickComing,
	})
	require.NoError(t, err)

	fact, err := f.workDayRepo.GetVersion(f.employee.ID, dt, true, true)
	require.NoError(t, err)
	require.NotNil(t, fact)
	assert.Equal(t, at(2024, 3, 11, 7, 55), *fact.DttmWorkStart)
}

func TestHandleTick_DuplicateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	svc := f.attendanceService(defaultAttendanceConfig())

	dt := date(2024, 3, 11)
	f.createWorkDay(t, dt, false, true, models.TypeWorkday,
		ptr(at(2024, 3, 11, 8, 0)), ptr(at(2024, 3, 11, 20, 0)))

	params := TickParams{
		UserID: f.user.ID, ShopID: f.shop.ID, Dttm: at(2024, 3, 11, 8, 1),
		Type: models.TickComing,
	}

	_, err := svc.HandleTick(params)
	require.NoError(t, err)
	_, err = svc.HandleTick(params)
	require.NoError(t, err)

	fact, err := f.workDayRepo.GetVersion(f.employee.ID, dt, true, true)
	require.NoError(t, err)
	require.NotNil(t, fact)
	assert.Equal(t, at(2024, 3, 11, 8, 1), *fact.DttmWorkStart)

	records, err := f.attendanceRepo.ListByUser(f.user.ID, 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestHandleTick_NoTypeReplayIsIdempotent(t *testing.T) {
	f := newFixture(t)
	svc := f.attendanceService(defaultAttendanceConfig())

	dt := date(2024, 3, 11)
	f.createWorkDay(t, dt, false, true, models.TypeWorkday,
		ptr(at(2024, 3, 11, 8, 0)), ptr(at(2024, 3, 11, 20, 0)))

	params := TickParams{
		UserID: f.user.ID, ShopID: f.shop.ID, Dttm: at(2024, 3, 11, 7, 58),
	}

	first, err := svc.HandleTick(params)
	require.NoError(t, err)
	assert.Equal(t, models.TickComing, first.Type)

	// Повтор отметки без типа находит уже сохранённое событие, хотя
	// хранится оно с выведенным типом
	second, err := svc.HandleTick(params)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	records, err := f.attendanceRepo.ListByUser(f.user.ID, 0)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	fact, err := f.workDayRepo.GetVersion(f.employee.ID, dt, true, true)
	require.NoError(t, err)
	require.NotNil(t, fact)
	assert.Equal(t, at(2024, 3, 11, 7, 58), *fact.DttmWorkStart)
}

func TestHandleTick_NoPlanResolvesEmployment(t *testing.T) {
	f := newFixture(t)
	svc := f.attendanceService(defaultAttendanceConfig())

	dt := date(2024, 3, 11)
	record, err := svc.HandleTick(TickParams{
		UserID: f.user.ID, ShopID: f.shop.ID, Dttm: at(2024, 3, 11, 10, 0),
	})
	require.NoError(t, err)

	// Без плана событие относится к дате отметки и активному
	// трудоустройству, отметка трактуется как приход
	assert.Equal(t, models.TickComing, record.Type)
	require.NotNil(t, record.Dt)
	assert.Equal(t, dt, *record.Dt)

	fact, err := f.workDayRepo.GetVersion(f.employee.ID, dt, true, true)
	require.NoError(t, err)
	require.NotNil(t, fact)
	assert.True(t, fact.IsOpenFact())
}

func TestHandleTick_LeavingClosesPreviousDay(t *testing.T) {
	f := newFixture(t)
	svc := f.attendanceService(defaultAttendanceConfig())

	// Открытая смена вчера с 20:00, уход в 04:00 сегодня
	prevDt := date(2024, 3, 11)
	f.createWorkDay(t, prevDt, true, true, models.TypeWorkday,
		ptr(at(2024, 3, 11, 20, 0)), nil)

	_, err := svc.HandleTick(TickParams{
		UserID: f.user.ID, ShopID: f.shop.ID, Dttm: at(2024, 3, 12, 4, 0),
		Type: models.TickLeaving,
	})
	require.NoError(t, err)

	prev, err := f.workDayRepo.GetVersion(f.employee.ID, prevDt, true, true)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.False(t, prev.IsOpenFact())
	assert.Equal(t, at(2024, 3, 12, 4, 0), *prev.DttmWorkEnd)
	// Ночные часы посчитаны
	assert.True(t, prev.NightHours.GreaterThan(decimal.Zero))
}

func TestHandleTick_SkipLeavingTick(t *testing.T) {
	f := newFixture(t)
	cfg := defaultAttendanceConfig()
	cfg.SkipLeavingTick = true
	svc := f.attendanceService(cfg)

	dt := date(2024, 3, 11)
	f.createWorkDay(t, dt, false, true, models.TypeWorkday,
		ptr(at(2024, 3, 11, 8, 0)), ptr(at(2024, 3, 11, 20, 0)))

	record, err := svc.HandleTick(TickParams{
		UserID: f.user.ID, ShopID: f.shop.ID, Dttm: at(2024, 3, 11, 20, 1),
		Type: models.TickLeaving,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TickLeaving, record.Type)

	// Факт не создан: уходящие отметки выключены
	fact, err := f.workDayRepo.GetVersion(f.employee.ID, dt, true, true)
	require.NoError(t, err)
	assert.Nil(t, fact)
}
