package service

import (
	"errors"
)

// Доменные ошибки движка. Обработчики сопоставляют их с HTTP-кодами
// через errors.Is.
var (
	// ErrValidation - запрос нарушает схему или семантику данных
	ErrValidation = errors.New("некорректные данные запроса")
	// ErrOverlap - интервалы рабочих дней сотрудника пересекаются
	ErrOverlap = errors.New("время работы пересекается с другой сменой")
	// ErrTaskViolation - смены не покрывают задачи дня
	ErrTaskViolation = errors.New("смены не покрывают назначенные задачи")
	// ErrApprovalForbidden - нет права подтверждать затронутые дни
	ErrApprovalForbidden = errors.New("нет права на подтверждение графика")
	// ErrForbidden - действие запрещено группой прав
	ErrForbidden = errors.New("действие запрещено")
	// ErrProtectedDay - защищённый день без соответствующего права
	ErrProtectedDay = errors.New("защищённый день нельзя изменить")
	// ErrNoActiveEmployment - нет активного трудоустройства на дату
	ErrNoActiveEmployment = errors.New("нет активного трудоустройства")
	// ErrNotFound - сущность по идентификатору или коду не найдена
	ErrNotFound = errors.New("объект не найден")
	// ErrMultiObjectUnique - по коду найдено больше одного объекта
	ErrMultiObjectUnique = errors.New("по коду найдено несколько объектов")
	// ErrVersionsMismatch - версия записи изменилась между чтением и записью
	ErrVersionsMismatch = errors.New("версия записи устарела")
	// ErrConflict - конкурентное изменение, можно повторить после сверки
	ErrConflict = errors.New("конкурентное изменение, повторите запрос")
)
