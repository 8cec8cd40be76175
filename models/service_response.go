package models

// ServiceResponse is the envelope every json endpoint answers with, exactly one of data or error is set
type ServiceResponse[T any] struct {
	Data  *T     `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func GetServiceResponseOk[T any](data *T) ServiceResponse[T] {
	return ServiceResponse[T]{Data: data}
}

func GetServiceResponseError(err error) ServiceResponse[any] {
	return ServiceResponse[any]{Error: err.Error()}
}
