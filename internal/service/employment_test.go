package service

import (
	"testing"
	"time"
	"wfm-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) addEmployment(t *testing.T, shopID, positionID uint, dtHired time.Time, dtFired *time.Time, norm int) *models.Employment {
	t.Helper()
	e := &models.Employment{
		EmployeeID:    f.employee.ID,
		ShopID:        shopID,
		PositionID:    positionID,
		DtHired:       dtHired,
		DtFired:       dtFired,
		NormWorkHours: norm,
	}
	require.NoError(t, f.db.Create(e).Error)
	return e
}

func TestActiveEmployment_NoneBeforeHireDate(t *testing.T) {
	f := newFixture(t)
	svc := f.employmentService()

	_, err := svc.ActiveEmployment(f.employee.ID, date(2019, 6, 1), nil, nil)
	assert.ErrorIs(t, err, ErrNoActiveEmployment)
}

func TestActiveEmployment_NoneAfterFireDate(t *testing.T) {
	f := newFixture(t)
	svc := f.employmentService()

	fired := date(2024, 1, 31)
	f.employment.DtFired = &fired
	require.NoError(t, f.db.Save(f.employment).Error)

	_, err := svc.ActiveEmployment(f.employee.ID, date(2024, 3, 11), nil, nil)
	assert.ErrorIs(t, err, ErrNoActiveEmployment)
}

func TestActiveEmployment_PriorityShopBeatsNorm(t *testing.T) {
	f := newFixture(t)
	svc := f.employmentService()

	otherShop := &models.Shop{Code: "shop-2", Name: "Магазин 2", NetworkID: f.network.ID, Timezone: "UTC"}
	require.NoError(t, f.db.Create(otherShop).Error)
	// Совместительство в другом магазине с большей ставкой
	f.addEmployment(t, otherShop.ID, f.position.ID, date(2021, 1, 1), nil, 150)

	chosen, err := svc.ActiveEmployment(f.employee.ID, date(2024, 3, 11), &f.shop.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, f.employment.ID, chosen.ID)
}

func TestActiveEmployment_AnchorPositionBeatsNorm(t *testing.T) {
	f := newFixture(t)
	svc := f.employmentService()

	otherPosition := &models.Position{Code: "loader", Name: "Грузчик"}
	require.NoError(t, f.db.Create(otherPosition).Error)
	low := f.addEmployment(t, f.shop.ID, otherPosition.ID, date(2021, 1, 1), nil, 50)

	chosen, err := svc.ActiveEmployment(f.employee.ID, date(2024, 3, 11), &f.shop.ID, &otherPosition.ID)
	require.NoError(t, err)
	assert.Equal(t, low.ID, chosen.ID)
}

func TestActiveEmployment_HigherNormWins(t *testing.T) {
	f := newFixture(t)
	svc := f.employmentService()

	full := f.addEmployment(t, f.shop.ID, f.position.ID, date(2021, 1, 1), nil, 150)

	chosen, err := svc.ActiveEmployment(f.employee.ID, date(2024, 3, 11), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, full.ID, chosen.ID)
}

func TestActiveEmployment_RecentHireBreaksTie(t *testing.T) {
	f := newFixture(t)
	svc := f.employmentService()

	// Та же ставка, но более позднее оформление
	recent := f.addEmployment(t, f.shop.ID, f.position.ID, date(2023, 5, 1), nil, 100)

	chosen, err := svc.ActiveEmployment(f.employee.ID, date(2024, 3, 11), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, recent.ID, chosen.ID)
}

func TestActiveEmployment_SharedServiceSeesChangesImmediately(t *testing.T) {
	f := newFixture(t)
	svc := f.employmentService()

	first, err := svc.ActiveEmployment(f.employee.ID, date(2024, 3, 11), nil, nil)
	require.NoError(t, err)
	require.Equal(t, f.employment.ID, first.ID)

	fired := date(2024, 3, 1)
	f.employment.DtFired = &fired
	require.NoError(t, f.db.Save(f.employment).Error)

	// Общий экземпляр не кэширует: увольнение видно сразу
	_, err = svc.ActiveEmployment(f.employee.ID, date(2024, 3, 11), nil, nil)
	assert.ErrorIs(t, err, ErrNoActiveEmployment)
}

func TestActiveEmployment_RequestCacheIsScoped(t *testing.T) {
	f := newFixture(t)
	svc := f.employmentService()

	scoped := svc.WithRequestCache()
	first, err := scoped.ActiveEmployment(f.employee.ID, date(2024, 3, 11), nil, nil)
	require.NoError(t, err)

	fired := date(2024, 3, 1)
	f.employment.DtFired = &fired
	require.NoError(t, f.db.Save(f.employment).Error)

	// Внутри области запроса ответ стабилен
	cached, err := scoped.ActiveEmployment(f.employee.ID, date(2024, 3, 11), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, cached.ID)

	// Новая область видит актуальное состояние
	_, err = svc.WithRequestCache().ActiveEmployment(f.employee.ID, date(2024, 3, 11), nil, nil)
	assert.ErrorIs(t, err, ErrNoActiveEmployment)
}

func TestActiveInMonth_IncludesPartialCoverage(t *testing.T) {
	f := newFixture(t)
	svc := f.employmentService()

	// Уволен в середине месяца - всё равно участвует
	fired := date(2024, 3, 10)
	partial := &models.Employment{
		EmployeeID:    f.employee.ID,
		ShopID:        f.shop.ID,
		PositionID:    f.position.ID,
		DtHired:       date(2021, 1, 1),
		DtFired:       &fired,
		NormWorkHours: 100,
	}
	require.NoError(t, f.db.Create(partial).Error)

	// Уволен до начала месяца - не участвует
	old := date(2024, 1, 15)
	gone := &models.Employment{
		EmployeeID:    f.employee.ID,
		ShopID:        f.shop.ID,
		PositionID:    f.position.ID,
		DtHired:       date(2020, 1, 1),
		DtFired:       &old,
		NormWorkHours: 100,
	}
	require.NoError(t, f.db.Create(gone).Error)

	active, err := svc.ActiveInMonth(f.employee.ID, 2024, 3)
	require.NoError(t, err)

	ids := map[uint]bool{}
	for _, e := range active {
		ids[e.ID] = true
	}
	assert.True(t, ids[f.employment.ID])
	assert.True(t, ids[partial.ID])
	assert.False(t, ids[gone.ID])
}
