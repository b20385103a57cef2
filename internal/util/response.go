package util

type Envelope map[string]any

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

func Success(data any) Envelope {
	return Envelope{"status": StatusSuccess, "data": data}
}

// Fail is the envelope for client errors (4xx).
func Fail(message string) Envelope {
	return Envelope{"status": StatusFail, "message": message}
}

// Error is the envelope for server errors (5xx).
func Error(message string) Envelope {
	return Envelope{"status": StatusError, "message": message}
}

func Data(key string, value any) Envelope {
	return Envelope{key: value}
}
