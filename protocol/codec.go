package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"pong-chat/errors"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// DecodeError carries the event type that failed, when it could be read,
// so the caller can answer with the matching failure event.
type DecodeError struct {
	Type Type
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Type == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode parses and validates one inbound frame.
func Decode(raw []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)}
	}

	var in Inbound
	switch env.Type {
	case TypeIdentify:
		var msg Identify
		if err := unmarshalData(env.Data, &msg); err != nil {
			return nil, &DecodeError{Type: env.Type, Err: err}
		}
		if err := validatePayload(msg); err != nil {
			return nil, &DecodeError{Type: env.Type, Err: errors.ErrEmptyUserID}
		}
		in = msg
	case TypeSendMessage:
		var msg SendMessage
		if err := unmarshalData(env.Data, &msg); err != nil {
			return nil, &DecodeError{Type: env.Type, Err: err}
		}
		if err := validatePayload(msg); err != nil {
			return nil, &DecodeError{Type: env.Type, Err: sendMessageError(err)}
		}
		in = msg
	case TypeGetOnlineUsers:
		in = GetOnlineUsers{}
	default:
		return nil, &DecodeError{Type: env.Type, Err: fmt.Errorf("%w: %q", errors.ErrUnknownEventType, env.Type)}
	}
	return in, nil
}

// Encode wraps an outbound event in its envelope.
func Encode(out Outbound) ([]byte, error) {
	data, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: out.Type(), Data: data})
}

func unmarshalData(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return errors.ErrInvalidPayload
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	return nil
}

func validatePayload(v any) error {
	return validate.Struct(v)
}

// sendMessageError reports the first invalid field as its specific error.
func sendMessageError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	switch fieldErrs[0].Field() {
	case "SenderID":
		return errors.ErrEmptySender
	case "ReceiverID":
		return errors.ErrEmptyReceiver
	default:
		return errors.ErrEmptyContent
	}
}
