package models

const (
	// DateLayout формат хранения дат заезда и выезда
	DateLayout = "2006-01-02"

	// DefaultMaxAdvanceDays насколько далеко вперед можно бронировать
	DefaultMaxAdvanceDays = 365

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 1000

	// DefaultPageSize размер страницы списков по умолчанию
	DefaultPageSize = 50

	// MaxPageSize верхняя граница размера страницы
	MaxPageSize = 500

	// DefaultCalendarDays длина календаря номера по умолчанию
	DefaultCalendarDays = 30

	// SheetsCacheTTL время жизни кэша строк Google Sheets
	SheetsCacheTTL = 60 * 60 // 1 час в секундах
)

// Способы связи в истории контактов брони
var ContactMethods = []string{"phone", "email", "sms", "in_person", "other"}
