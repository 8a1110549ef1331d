package websocket

// Серверные события realtime-канала
const (
	// EventNotificationNew сообщает о новом уведомлении пользователя
	EventNotificationNew = "NOTIFICATION_NEW"

	// EventComplianceStatus сообщает об изменении статуса обязательного контента
	EventComplianceStatus = "COMPLIANCE_STATUS"

	// EventBufferWarning предупреждает медленного клиента о скором отключении
	EventBufferWarning = "server:buffer_warning"

	// EventServerError сообщает клиенту об ошибке обработки его сообщения
	EventServerError = "server:error"

	// EventPong отвечает на EventPing клиента
	EventPong = "server:pong"
)

// Клиентские события
const (
	EventPing = "user:ping"
)
