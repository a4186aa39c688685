package service

import (
	"testing"
	"time"
	"wfm-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approveParams(f *fixture, dtFrom, dtTo time.Time) ApproveParams {
	return ApproveParams{
		ShopID:      f.shop.ID,
		DtFrom:      dtFrom,
		DtTo:        dtTo,
		IsFact:      false,
		ActorUserID: f.user.ID,
	}
}

func TestApproveRange_PromotesDraft(t *testing.T) {
	f := newFixture(t)
	svc := f.approvalService(date(2024, 3, 1))

	dt := date(2024, 3, 11)
	draft := f.createWorkDay(t, dt, false, false, models.TypeWorkday,
		ptr(at(2024, 3, 11, 8, 0)), ptr(at(2024, 3, 11, 20, 0)))

	require.NoError(t, svc.ApproveRange(approveParams(f, dt, dt)))

	// Черновик стал подтверждённой версией на месте
	approved, err := f.workDayRepo.GetVersion(f.employee.ID, dt, false, true)
	require.NoError(t, err)
	require.NotNil(t, approved)
	assert.Equal(t, draft.ID, approved.ID)
	assert.Equal(t, at(2024, 3, 11, 8, 0), *approved.DttmWorkStart)

	notApproved, err := f.workDayRepo.GetVersion(f.employee.ID, dt, false, false)
	require.NoError(t, err)
	assert.Nil(t, notApproved)
}

func TestApproveRange_ReplacesOldApproved(t *testing.T) {
	f := newFixture(t)
	svc := f.approvalService(date(2024, 3, 1))

	dt := date(2024, 3, 11)
	old := f.createWorkDay(t, dt, false, true, models.TypeWorkday,
		ptr(at(2024, 3, 11, 9, 0)), ptr(at(2024, 3, 11, 18, 0)))
	draft := f.createWorkDay(t, dt, false, false, models.TypeWorkday,
		ptr(at(2024, 3, 11, 10, 0)), ptr(at(2024, 3, 11, 19, 0)))

	require.NoError(t, svc.ApproveRange(approveParams(f, dt, dt)))

	approved, err := f.workDayRepo.GetVersion(f.employee.ID, dt, false, true)
	require.NoError(t, err)
	require.NotNil(t, approved)
	assert.Equal(t, draft.ID, approved.ID)
	assert.Equal(t, at(2024, 3, 11, 10, 0), *approved.DttmWorkStart)

	// Прежняя подтверждённая строка удалена
	gone, err := f.workDayRepo.GetByID(old.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestApproveRange_DeletesOrphanApproved(t *testing.T) {
	f := newFixture(t)
	svc := f.approvalService(date(2024, 3, 1))

	dt := date(2024, 3, 11)
	orphan := f.createWorkDay(t, dt, false, true, models.TypeWorkday,
		ptr(at(2024, 3, 11, 9, 0)), ptr(at(2024, 3, 11, 18, 0)))

	// Черновиков нет: подтверждение области стирает осиротевшую строку
	require.NoError(t, svc.ApproveRange(approveParams(f, dt, dt)))

	gone, err := f.workDayRepo.GetByID(orphan.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestApproveRange_OverlapBetweenCandidates(t *testing.T) {
	f := newFixture(t)
	svc := f.approvalService(date(2024, 3, 1))

	// Ночная смена заходит на следующий день и пересекает утренний черновик
	f.createWorkDay(t, date(2024, 3, 11), false, false, models.TypeWorkday,
		ptr(at(2024, 3, 11, 20, 0)), ptr(at(2024, 3, 12, 4, 0)))
	f.createWorkDay(t, date(2024, 3, 12), false, false, models.TypeWorkday,
		ptr(at(2024, 3, 12, 3, 30)), ptr(at(2024, 3, 12, 12, 0)))

	err := svc.ApproveRange(approveParams(f, date(2024, 3, 11), date(2024, 3, 12)))
	assert.ErrorIs(t, err, ErrOverlap)

	// Транзакция откатилась: подтверждённых версий нет
	approved, err := f.workDayRepo.GetVersion(f.employee.ID, date(2024, 3, 11), false, true)
	require.NoError(t, err)
	assert.Nil(t, approved)
}

func TestApproveRange_OverlapWithApprovedNeighbor(t *testing.T) {
	f := newFixture(t)
	svc := f.approvalService(date(2024, 3, 1))

	// Вчерашняя подтверждённая ночная смена вне области подтверждения
	f.createWorkDay(t, date(2024, 3, 11), false, true, models.TypeWorkday,
		ptr(at(2024, 3, 11, 20, 0)), ptr(at(2024, 3, 12, 4, 0)))
	f.createWorkDay(t, date(2024, 3, 12), false, false, models.TypeWorkday,
		ptr(at(2024, 3, 12, 3, 30)), ptr(at(2024, 3, 12, 12, 0)))

	err := svc.ApproveRange(approveParams(f, date(2024, 3, 12), date(2024, 3, 12)))
	assert.ErrorIs(t, err, ErrOverlap)
}

func TestApproveRange_TaskNotCovered(t *testing.T) {
	f := newFixture(t)
	svc := f.approvalService(date(2024, 3, 1))

	dt := date(2024, 3, 11)
	task := &models.ShiftTask{
		EmployeeID: f.employee.ID,
		Dt:         dt,
		DttmStart:  at(2024, 3, 11, 10, 0),
		DttmEnd:    at(2024, 3, 11, 14, 0),
		Operation:  "Приёмка",
	}
	require.NoError(t, f.db.Create(task).Error)

	// Смена начинается после старта задачи
	f.createWorkDay(t, dt, false, false, models.TypeWorkday,
		ptr(at(2024, 3, 11, 11, 0)), ptr(at(2024, 3, 11, 18, 0)))

	err := svc.ApproveRange(approveParams(f, dt, dt))
	assert.ErrorIs(t, err, ErrTaskViolation)
}

func TestApproveRange_TaskCovered(t *testing.T) {
	f := newFixture(t)
	svc := f.approvalService(date(2024, 3, 1))

	dt := date(2024, 3, 11)
	task := &models.ShiftTask{
		EmployeeID: f.employee.ID,
		Dt:         dt,
		DttmStart:  at(2024, 3, 11, 10, 0),
		DttmEnd:    at(2024, 3, 11, 14, 0),
		Operation:  "Приёмка",
	}
	require.NoError(t, f.db.Create(task).Error)

	f.createWorkDay(t, dt, false, false, models.TypeWorkday,
		ptr(at(2024, 3, 11, 9, 0)), ptr(at(2024, 3, 11, 18, 0)))

	require.NoError(t, svc.ApproveRange(approveParams(f, dt, dt)))

	approved, err := f.workDayRepo.GetVersion(f.employee.ID, dt, false, true)
	require.NoError(t, err)
	assert.NotNil(t, approved)
}

func TestApproveRange_ForbiddenWithoutGroup(t *testing.T) {
	f := newFixture(t)
	svc := f.approvalService(date(2024, 3, 1))

	outsider := &models.User{Username: "petrov"}
	require.NoError(t, f.db.Create(outsider).Error)

	dt := date(2024, 3, 11)
	f.createWorkDay(t, dt, false, false, models.TypeWorkday,
		ptr(at(2024, 3, 11, 8, 0)), ptr(at(2024, 3, 11, 20, 0)))

	params := approveParams(f, dt, dt)
	params.ActorUserID = outsider.ID
	err := svc.ApproveRange(params)
	assert.ErrorIs(t, err, ErrApprovalForbidden)

	// Черновик остался неподтверждённым
	draft, derr := f.workDayRepo.GetVersion(f.employee.ID, dt, false, false)
	require.NoError(t, derr)
	assert.NotNil(t, draft)
}

func TestApproveRange_InvalidRange(t *testing.T) {
	f := newFixture(t)
	svc := f.approvalService(date(2024, 3, 1))

	err := svc.ApproveRange(approveParams(f, date(2024, 3, 12), date(2024, 3, 11)))
	assert.ErrorIs(t, err, ErrValidation)
}
