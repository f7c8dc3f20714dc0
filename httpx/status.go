package httpx

import "strconv"

var statusText = map[int]string{
	100: "Continue",
	101: "Switching Protocols",
	102: "Processing",
	200: "OK",
	201: "Created",
	202: "Accepted",
	203: "Non-Authoritative Information",
	204: "No Content",
	205: "Reset Content",
	206: "Partial Content",
	207: "Multi-status",
	208: "Already Reported",
	300: "Multiple Choices",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	304: "Not Modified",
	305: "Use Proxy",
	306: "Switch Proxy",
	307: "Temporary Redirect",
	400: "Bad Request",
	401: "Unauthorized",
	402: "Payment Required",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	407: "Proxy Authentication Required",
	408: "Request Time-out",
	409: "Conflict",
	410: "Gone",
	411: "Length Required",
	412: "Precondition Failed",
	413: "Request Entity Too Large",
	414: "Request-URI Too Large",
	415: "Unsupported Media Type",
	416: "Requested range not satisfiable",
	417: "Expectation Failed",
	418: "I'm a teapot",
	422: "Unprocessable Entity",
	423: "Locked",
	424: "Failed Dependency",
	425: "Unordered Collection",
	426: "Upgrade Required",
	428: "Precondition Required",
	429: "Too Many Requests",
	431: "Request Header Fields Too Large",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Time-out",
	505: "HTTP Version not supported",
	506: "Variant Also Negotiates",
	507: "Insufficient Storage",
	508: "Loop Detected",
	511: "Network Authentication Required",
}

// StatusText returns the standard reason phrase for code, or "" when the
// code is not in the table.
func StatusText(code int) string {
	return statusText[code]
}

// StatusError is an error that carries the response to send for it.
// Handlers return one to abort with a specific status.
type StatusError struct {
	Response *Response
	Cause    error
}

// NewStatusError builds a StatusError around a fresh response for code.
func NewStatusError(code int, cause error) *StatusError {
	return &StatusError{Response: NewResponse(code, ""), Cause: cause}
}

func (e *StatusError) Error() string {
	if e.Response == nil {
		return "httpx: status error"
	}
	if r := e.Response.ReasonPhrase(); r != "" {
		return r
	}
	return "httpx: status " + strconv.Itoa(e.Response.StatusCode())
}

// Code returns the status code of the carried response.
func (e *StatusError) Code() int {
	if e.Response == nil {
		return 500
	}
	return e.Response.StatusCode()
}

func (e *StatusError) Unwrap() error { return e.Cause }
