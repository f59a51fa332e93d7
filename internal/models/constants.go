package models

const (
	UserTypeStudent = "student"
	UserTypeStaff   = "staff"
)

const (
	BadgeAvailable   = "available"
	BadgeLimited     = "limited"
	BadgeUnavailable = "unavailable"

	// LimitedAvailabilityThreshold is the highest count still shown as "limited".
	LimitedAvailabilityThreshold = 2
)

const (
	// FilterAll disables the category or status filter.
	FilterAll = "all"

	// DateLayout is the wire format for calendar days.
	DateLayout = "2006-01-02"

	// ReservationIDPrefix is prepended to generated reservation identifiers.
	ReservationIDPrefix = "RES-"
)

const (
	// DefaultMaxReservationDays caps the inclusive length of a loan period.
	DefaultMaxReservationDays = 14

	// DefaultSessionTTL время жизни мастера бронирования в секундах
	DefaultSessionTTL = 2 * 60 * 60

	// DefaultSubmitRateLimit количество отправок формы в окне
	DefaultSubmitRateLimit = 5

	// DefaultSubmitRateWindow окно ограничения отправок формы в секундах
	DefaultSubmitRateWindow = 60

	// DefaultScanDelay задержка имитации сканирования в миллисекундах
	DefaultScanDelay = 2000

	// DefaultScanTimeout предел ожидания сканирования в миллисекундах
	DefaultScanTimeout = 10000

	// DefaultScanMockCode reservation returned by the simulated camera scan
	DefaultScanMockCode = "RES-001"

	// DefaultOverdueSchedule расписание проверки просроченных выдач
	DefaultOverdueSchedule = "@every 1h"
)
