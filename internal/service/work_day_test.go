package service

import (
	"testing"
	"time"
	"wfm-backend/internal/models"
	"wfm-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) planWorkday(dt time.Time, start, end time.Time) *models.WorkDay {
	return &models.WorkDay{
		EmployeeID:    &f.employee.ID,
		Dt:            dt,
		IsFact:        false,
		IsApproved:    true,
		TypeCode:      models.TypeWorkday,
		ShopID:        &f.shop.ID,
		DttmWorkStart: &start,
		DttmWorkEnd:   &end,
	}
}

func TestUpsert_CreatesWithComputedHours(t *testing.T) {
	f := newFixture(t)
	f.addBreakRule(t, 360, 780, "30,30")
	svc := f.workDayService(date(2024, 3, 1))

	dt := date(2024, 3, 11)
	saved, err := svc.Upsert(f.planWorkday(dt, at(2024, 3, 11, 9, 0), at(2024, 3, 11, 18, 0)), nil, &f.user.ID)
	require.NoError(t, err)

	// 540 минут минус час перерывов
	hoursEqual(t, "8", saved.WorkHours)
	require.NotNil(t, saved.EmploymentID)
	assert.Equal(t, f.employment.ID, *saved.EmploymentID)
	require.NotNil(t, saved.CreatedByID)
	assert.Equal(t, f.user.ID, *saved.CreatedByID)
}

func TestUpsert_UpdatesExistingInPlace(t *testing.T) {
	f := newFixture(t)
	svc := f.workDayService(date(2024, 3, 1))

	dt := date(2024, 3, 11)
	first, err := svc.Upsert(f.planWorkday(dt, at(2024, 3, 11, 9, 0), at(2024, 3, 11, 18, 0)), nil, &f.user.ID)
	require.NoError(t, err)

	second, err := svc.Upsert(f.planWorkday(dt, at(2024, 3, 11, 10, 0), at(2024, 3, 11, 19, 0)), nil, &f.user.ID)
	require.NoError(t, err)

	// Тот же ключ версии - строка обновлена, а не продублирована
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, at(2024, 3, 11, 10, 0), *second.DttmWorkStart)

	days, err := f.workDayRepo.List(repository.WorkDayFilter{EmployeeIDs: []uint{f.employee.ID}})
	require.NoError(t, err)
	assert.Len(t, days, 1)
}

func TestUpsert_OverlapRejected(t *testing.T) {
	f := newFixture(t)
	svc := f.workDayService(date(2024, 3, 1))

	// Ночная смена накануне заходит на утро
	f.createWorkDay(t, date(2024, 3, 11), false, true, models.TypeWorkday,
		ptr(at(2024, 3, 11, 20, 0)), ptr(at(2024, 3, 12, 4, 0)))

	_, err := svc.Upsert(f.planWorkday(date(2024, 3, 12), at(2024, 3, 12, 3, 30), at(2024, 3, 12, 12, 0)), nil, nil)
	assert.ErrorIs(t, err, ErrOverlap)
}

func TestUpsert_DayoffWithIntervalInvalid(t *testing.T) {
	f := newFixture(t)
	svc := f.workDayService(date(2024, 3, 1))

	start := at(2024, 3, 11, 9, 0)
	end := at(2024, 3, 11, 18, 0)
	wd := &models.WorkDay{
		EmployeeID:    &f.employee.ID,
		Dt:            date(2024, 3, 11),
		TypeCode:      models.TypeVacation,
		DttmWorkStart: &start,
		DttmWorkEnd:   &end,
	}

	_, err := svc.Upsert(wd, nil, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpsert_DetailsMustSumToOne(t *testing.T) {
	f := newFixture(t)
	svc := f.workDayService(date(2024, 3, 1))

	dt := date(2024, 3, 11)
	details := []models.WorkDayDetail{{WorkTypeID: 1, WorkPart: 0.5}}

	_, err := svc.Upsert(f.planWorkday(dt, at(2024, 3, 11, 9, 0), at(2024, 3, 11, 18, 0)), details, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpsert_ForbiddenActor(t *testing.T) {
	f := newFixture(t)
	svc := f.workDayService(date(2024, 3, 1))

	outsider := &models.User{Username: "petrov"}
	require.NoError(t, f.db.Create(outsider).Error)

	dt := date(2024, 3, 11)
	_, err := svc.Upsert(f.planWorkday(dt, at(2024, 3, 11, 9, 0), at(2024, 3, 11, 18, 0)), nil, &outsider.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRangeDelete_SkipsApproved(t *testing.T) {
	f := newFixture(t)
	svc := f.workDayService(date(2024, 3, 1))

	dt := date(2024, 3, 11)
	draft := f.createWorkDay(t, dt, false, false, models.TypeWorkday,
		ptr(at(2024, 3, 11, 9, 0)), ptr(at(2024, 3, 11, 18, 0)))
	approved := f.createWorkDay(t, dt, false, true, models.TypeWorkday,
		ptr(at(2024, 3, 11, 9, 0)), ptr(at(2024, 3, 11, 18, 0)))

	deleted, err := svc.RangeDelete([]uint{f.employee.ID}, dt, dt, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	gone, err := f.workDayRepo.GetByID(draft.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := f.workDayRepo.GetByID(approved.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestGetPlan_PrefersApproved(t *testing.T) {
	f := newFixture(t)
	svc := f.workDayService(date(2024, 3, 1))

	dt := date(2024, 3, 11)
	f.createWorkDay(t, dt, false, false, models.TypeWorkday,
		ptr(at(2024, 3, 11, 10, 0)), ptr(at(2024, 3, 11, 19, 0)))
	approved := f.createWorkDay(t, dt, false, true, models.TypeWorkday,
		ptr(at(2024, 3, 11, 9, 0)), ptr(at(2024, 3, 11, 18, 0)))

	plan, err := svc.GetPlan(f.employee.ID, dt)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, approved.ID, plan.ID)
}

func TestGetPlan_FallsBackToDraft(t *testing.T) {
	f := newFixture(t)
	svc := f.workDayService(date(2024, 3, 1))

	dt := date(2024, 3, 11)
	draft := f.createWorkDay(t, dt, false, false, models.TypeWorkday,
		ptr(at(2024, 3, 11, 10, 0)), ptr(at(2024, 3, 11, 19, 0)))

	plan, err := svc.GetPlan(f.employee.ID, dt)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, draft.ID, plan.ID)
}

func TestGetTabel_PrefersApprovedFact(t *testing.T) {
	f := newFixture(t)
	svc := f.workDayService(date(2024, 3, 1))

	dt := date(2024, 3, 11)
	f.createWorkDay(t, dt, false, true, models.TypeWorkday,
		ptr(at(2024, 3, 11, 9, 0)), ptr(at(2024, 3, 11, 18, 0)))
	fact := f.createWorkDay(t, dt, true, true, models.TypeWorkday,
		ptr(at(2024, 3, 11, 9, 5)), ptr(at(2024, 3, 11, 18, 10)))

	tabel, err := svc.GetTabel(f.employee.ID, dt)
	require.NoError(t, err)
	require.NotNil(t, tabel)
	assert.Equal(t, fact.ID, tabel.ID)
}

func TestGetTabel_SkipsPlanWithIntervalButNoHours(t *testing.T) {
	f := newFixture(t)
	svc := f.workDayService(date(2024, 3, 1))

	// План с интервалом, но без рассчитанных часов в табель не попадает
	dt := date(2024, 3, 11)
	f.createWorkDay(t, dt, false, true, models.TypeWorkday,
		ptr(at(2024, 3, 11, 9, 0)), ptr(at(2024, 3, 11, 18, 0)))

	tabel, err := svc.GetTabel(f.employee.ID, dt)
	require.NoError(t, err)
	assert.Nil(t, tabel)
}

func TestGetTabel_ReturnsPlannedDayoff(t *testing.T) {
	f := newFixture(t)
	svc := f.workDayService(date(2024, 3, 1))

	dt := date(2024, 3, 11)
	vacation := &models.WorkDay{
		EmployeeID: &f.employee.ID,
		Dt:         dt,
		IsFact:     false,
		IsApproved: true,
		TypeCode:   models.TypeVacation,
	}
	require.NoError(t, f.workDayRepo.Create(vacation))

	tabel, err := svc.GetTabel(f.employee.ID, dt)
	require.NoError(t, err)
	require.NotNil(t, tabel)
	assert.Equal(t, vacation.ID, tabel.ID)
}

func TestChangeRange_FillsPeriodWithDayoffType(t *testing.T) {
	f := newFixture(t)
	svc := f.workDayService(date(2024, 3, 1))

	changed, err := svc.ChangeRange(f.network.ID, "T-001",
		date(2024, 3, 11), date(2024, 3, 13), models.TypeVacation, true, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, changed)

	for day := 11; day <= 13; day++ {
		wd, err := f.workDayRepo.GetVersion(f.employee.ID, date(2024, 3, day), false, true)
		require.NoError(t, err)
		require.NotNil(t, wd, "day %d", day)
		assert.Equal(t, models.TypeVacation, wd.TypeCode)
	}
}

func TestChangeRange_RejectsIntervalType(t *testing.T) {
	f := newFixture(t)
	svc := f.workDayService(date(2024, 3, 1))

	_, err := svc.ChangeRange(f.network.ID, "T-001",
		date(2024, 3, 11), date(2024, 3, 13), models.TypeWorkday, true, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExchangeApproved_SwapsDays(t *testing.T) {
	f := newFixture(t)
	svc := f.workDayService(date(2024, 3, 1))

	other := &models.Employee{TabelCode: "T-002", NetworkID: f.network.ID}
	require.NoError(t, f.db.Create(other).Error)
	otherEmployment := &models.Employment{
		EmployeeID:    other.ID,
		ShopID:        f.shop.ID,
		PositionID:    f.position.ID,
		DtHired:       date(2020, 1, 1),
		NormWorkHours: 100,
	}
	require.NoError(t, f.db.Create(otherEmployment).Error)

	dt := date(2024, 3, 11)
	f.createWorkDay(t, dt, false, true, models.TypeWorkday,
		ptr(at(2024, 3, 11, 8, 0)), ptr(at(2024, 3, 11, 14, 0)))

	otherDay := &models.WorkDay{
		EmployeeID:    &other.ID,
		Dt:            dt,
		IsFact:        false,
		IsApproved:    true,
		TypeCode:      models.TypeWorkday,
		ShopID:        &f.shop.ID,
		EmploymentID:  &otherEmployment.ID,
		DttmWorkStart: ptr(at(2024, 3, 11, 14, 0)),
		DttmWorkEnd:   ptr(at(2024, 3, 11, 20, 0)),
	}
	require.NoError(t, f.workDayRepo.Create(otherDay))

	require.NoError(t, svc.ExchangeApproved(f.employee.ID, other.ID, []time.Time{dt}, nil))

	mine, err := f.workDayRepo.GetVersion(f.employee.ID, dt, false, true)
	require.NoError(t, err)
	require.NotNil(t, mine)
	assert.Equal(t, at(2024, 3, 11, 14, 0), *mine.DttmWorkStart)

	theirs, err := f.workDayRepo.GetVersion(other.ID, dt, false, true)
	require.NoError(t, err)
	require.NotNil(t, theirs)
	assert.Equal(t, at(2024, 3, 11, 8, 0), *theirs.DttmWorkStart)
	// Привязка к трудоустройству пересчитана под нового сотрудника
	require.NotNil(t, theirs.EmploymentID)
	assert.Equal(t, otherEmployment.ID, *theirs.EmploymentID)
}

func TestExchangeApproved_FailedSwapKeepsBothDays(t *testing.T) {
	f := newFixture(t)
	svc := f.workDayService(date(2024, 3, 1))

	// Второй сотрудник без трудоустройства: переназначение его дня
	// не найдёт активного трудоустройства и упадёт
	other := &models.Employee{TabelCode: "T-002", NetworkID: f.network.ID}
	require.NoError(t, f.db.Create(other).Error)

	dt := date(2024, 3, 11)
	f.createWorkDay(t, dt, false, true, models.TypeWorkday,
		ptr(at(2024, 3, 11, 8, 0)), ptr(at(2024, 3, 11, 14, 0)))

	otherDay := &models.WorkDay{
		EmployeeID:    &other.ID,
		Dt:            dt,
		IsFact:        false,
		IsApproved:    true,
		TypeCode:      models.TypeWorkday,
		ShopID:        &f.shop.ID,
		DttmWorkStart: ptr(at(2024, 3, 11, 14, 0)),
		DttmWorkEnd:   ptr(at(2024, 3, 11, 20, 0)),
	}
	require.NoError(t, f.workDayRepo.Create(otherDay))

	err := svc.ExchangeApproved(f.employee.ID, other.ID, []time.Time{dt}, nil)
	require.Error(t, err)

	// Неудавшийся обмен откатывается: оба подтверждённых дня на месте
	mine, err := f.workDayRepo.GetVersion(f.employee.ID, dt, false, true)
	require.NoError(t, err)
	require.NotNil(t, mine)
	assert.Equal(t, at(2024, 3, 11, 8, 0), *mine.DttmWorkStart)

	theirs, err := f.workDayRepo.GetVersion(other.ID, dt, false, true)
	require.NoError(t, err)
	require.NotNil(t, theirs)
	assert.Equal(t, at(2024, 3, 11, 14, 0), *theirs.DttmWorkStart)
}

func TestUpsertByCode_ByUsername(t *testing.T) {
	f := newFixture(t)
	svc := f.workDayService(date(2024, 3, 1))

	dt := date(2024, 3, 11)
	saved, err := svc.UpsertByCode(UpsertByCodeParams{
		ShopCode:      "shop-1",
		Username:      "ivanov",
		Dt:            dt,
		TypeCode:      models.TypeWorkday,
		DttmWorkStart: ptr(at(2024, 3, 11, 9, 0)),
		DttmWorkEnd:   ptr(at(2024, 3, 11, 18, 0)),
		IsApproved:    true,
	}, nil)
	require.NoError(t, err)

	require.NotNil(t, saved.EmployeeID)
	assert.Equal(t, f.employee.ID, *saved.EmployeeID)
	require.NotNil(t, saved.ShopID)
	assert.Equal(t, f.shop.ID, *saved.ShopID)
}

func TestUpsertByCode_AmbiguousUsername(t *testing.T) {
	f := newFixture(t)
	svc := f.workDayService(date(2024, 3, 1))

	// Вторая карточка сотрудника у того же пользователя
	twin := &models.Employee{UserID: &f.user.ID, TabelCode: "T-001-2", NetworkID: f.network.ID}
	require.NoError(t, f.db.Create(twin).Error)

	_, err := svc.UpsertByCode(UpsertByCodeParams{
		ShopCode: "shop-1",
		Username: "ivanov",
		Dt:       date(2024, 3, 11),
		TypeCode: models.TypeVacation,
	}, nil)
	assert.ErrorIs(t, err, ErrMultiObjectUnique)
}

func TestUpsertByCode_RequiresIdentifier(t *testing.T) {
	f := newFixture(t)
	svc := f.workDayService(date(2024, 3, 1))

	_, err := svc.UpsertByCode(UpsertByCodeParams{
		ShopCode: "shop-1",
		Dt:       date(2024, 3, 11),
		TypeCode: models.TypeVacation,
	}, nil)
	assert.ErrorIs(t, err, ErrValidation)
}
