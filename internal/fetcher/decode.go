package fetcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jgoulah/raemisreport/pkg/models"
)

// DecodeError is returned when the body is not a JSON array of flat objects
type DecodeError struct {
	Record int // -1 when the error is not tied to a record
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Record < 0 {
		return fmt.Sprintf("decoding response: %v", e.Err)
	}
	return fmt.Sprintf("decoding response record %d: %v", e.Record, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodeTable reads a JSON array of flat objects, keeping each object's key
// order and the literal text of numbers.
func DecodeTable(r io.Reader) (*models.Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, &DecodeError{Record: -1, Err: err}
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, &DecodeError{Record: -1, Err: fmt.Errorf("expected a JSON array, got %v", tok)}
	}

	table := &models.Table{}
	for dec.More() {
		rec, err := decodeRecord(dec)
		if err != nil {
			return nil, &DecodeError{Record: table.Len(), Err: err}
		}
		table.Append(rec)
	}

	// closing bracket
	if _, err := dec.Token(); err != nil {
		return nil, &DecodeError{Record: -1, Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &DecodeError{Record: -1, Err: errors.New("unexpected data after JSON array")}
	}

	return table, nil
}

func decodeRecord(dec *json.Decoder) (models.Record, error) {
	var rec models.Record

	tok, err := dec.Token()
	if err != nil {
		return rec, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return rec, fmt.Errorf("expected an object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return rec, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return rec, fmt.Errorf("expected an object key, got %v", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return rec, err
		}
		val, err := scalar(valTok)
		if err != nil {
			return rec, fmt.Errorf("field %q: %w", key, err)
		}

		rec.Fields = setField(rec.Fields, key, val)
	}

	if _, err := dec.Token(); err != nil {
		return rec, err
	}
	return rec, nil
}

// setField replaces an earlier value for a repeated key (last one wins)
func setField(fields []models.Field, key string, val models.Value) []models.Field {
	for i := range fields {
		if fields[i].Key == key {
			fields[i].Value = val
			return fields
		}
	}
	return append(fields, models.Field{Key: key, Value: val})
}

func scalar(tok json.Token) (models.Value, error) {
	switch v := tok.(type) {
	case nil:
		return models.Value{Kind: models.KindNull}, nil
	case string:
		return models.Value{Kind: models.KindString, Text: v}, nil
	case json.Number:
		return models.Value{Kind: models.KindNumber, Text: v.String()}, nil
	case bool:
		if v {
			return models.Value{Kind: models.KindBool, Text: "true"}, nil
		}
		return models.Value{Kind: models.KindBool, Text: "false"}, nil
	case json.Delim:
		if v == '{' {
			return models.Value{}, errors.New("nested objects are not supported")
		}
		return models.Value{}, errors.New("nested arrays are not supported")
	default:
		return models.Value{}, fmt.Errorf("unexpected token %v", tok)
	}
}
