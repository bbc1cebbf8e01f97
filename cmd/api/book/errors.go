package book

import "errors"

var (
	ErrNotFound = errors.New("book not found")
	ErrConflict = errors.New("book already exists")
)

type ErrResponse struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_message"`
}

func (e ErrResponse) Error() string {
	return e.Message
}

var ErrResponseBookNotFound = ErrResponse{101, "book not found"}
var ErrResponseMethodNotAllowed = ErrResponse{102, "method not allowed"}
var ErrResponseTooManyRequests = ErrResponse{103, "too many requests"}
var ErrResponseStorageUnavailable = ErrResponse{104, "storage unavailable"}
var ErrResponseInternal = ErrResponse{199, "internal server error"}
var ErrResponseRequestTimeout = ErrResponse{105, "request timed out"}
