package nlx402

import "encoding/json"

// validator is implemented by every wire shape; a successful decode
// guarantees the required fields are present and correctly typed.
type validator interface {
	validate() error
}

type rawResponse interface {
	Body() []byte
	StatusCode() int
}

// decodeInto classifies a raw response and decodes a success body into out.
//
// Non-2xx: the body is attempted as generic JSON for diagnostic context
// and attached to the APIError; an unparseable error body yields a nil
// Body but still the same APIError — a malformed diagnostic is not a
// client bug. 2xx: a decode or structural validation failure is an
// InvalidResponseError.
func decodeInto(resp rawResponse, out validator) error {
	status := resp.StatusCode()
	body := resp.Body()

	if status < 200 || status > 299 {
		var diag any
		if err := json.Unmarshal(body, &diag); err != nil {
			diag = nil
		}
		return &APIError{Status: status, Body: diag}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &InvalidResponseError{Message: err.Error()}
	}
	if err := out.validate(); err != nil {
		return &InvalidResponseError{Message: err.Error()}
	}
	return nil
}
