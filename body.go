package netkit

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/url"
	"sort"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

var (
	bodyValidate   = validator.New()
	formEncoder    = schema.NewEncoder()
)

// BodyVariant is a sealed tagged union over the ways a request body can be
// supplied. Go has no sum types, so the variant is realized as an
// interface with an unexported marker method; only the four structs below
// may implement it.
type BodyVariant interface {
	// Encode returns the wire bytes and the content-type they should be
	// sent with. Encoding is deterministic except for Multipart, whose
	// boundary is freshly random per call (RFC 7578).
	Encode() (data []byte, contentType string, err error)
	isBodyVariant()
}

// Validatable lets a Structured body's value opt into explicit validation
// instead of struct-tag validation.
type Validatable interface {
	Validate() error
}

// StructuredBody carries an arbitrary value plus the Codec that knows how
// to encode it. The bound to an encodable value is enforced at compile
// time: Codec must implement Encode(any) ([]byte, error); there is no
// runtime cast.
type StructuredBody struct {
	Value any
	Codec Codec
}

func (StructuredBody) isBodyVariant() {}

func (b StructuredBody) Encode() ([]byte, string, error) {
	if b.Codec == nil {
		return nil, "", fmt.Errorf("structured body requires a codec")
	}
	if v, ok := b.Value.(Validatable); ok {
		if err := v.Validate(); err != nil {
			return nil, "", fmt.Errorf("body validation failed: %w", err)
		}
	} else {
		if err := bodyValidate.Struct(b.Value); err != nil {
			if _, isInvalid := err.(*validator.InvalidValidationError); !isInvalid {
				return nil, "", fmt.Errorf("body validation failed: %w", err)
			}
		}
	}
	data, err := b.Codec.Encode(b.Value)
	if err != nil {
		return nil, "", err
	}
	return data, b.Codec.ContentType(), nil
}

// RawBody carries pre-encoded bytes plus their media type, for callers who
// already have a wire representation.
type RawBody struct {
	Data      []byte
	MediaType string
}

func (RawBody) isBodyVariant() {}

func (b RawBody) Encode() ([]byte, string, error) {
	return b.Data, b.MediaType, nil
}

// FormBody is an ordered key/value set encoded as
// application/x-www-form-urlencoded, percent-encoding both names and
// values.
type FormBody struct {
	Values map[string]string
	// Order, if set, fixes iteration order for deterministic encoding;
	// otherwise keys are sorted lexically.
	Order []string
}

func (FormBody) isBodyVariant() {}

func (b FormBody) Encode() ([]byte, string, error) {
	keys := b.Order
	if len(keys) == 0 {
		for k := range b.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if val, ok := b.Values[k]; ok {
			parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(val))
		}
	}
	return []byte(strings.Join(parts, "&")), "application/x-www-form-urlencoded", nil
}

// EncodeStruct is a convenience that uses gorilla/schema to flatten a
// struct into a FormBody's Values, mirroring the decode direction the
// library is normally used for.
func EncodeStruct(v any) (FormBody, error) {
	form := url.Values{}
	if err := formEncoder.Encode(v, form); err != nil {
		return FormBody{}, fmt.Errorf("form encode failed: %w", err)
	}
	values := make(map[string]string, len(form))
	var order []string
	for k := range form {
		values[k] = form.Get(k)
		order = append(order, k)
	}
	sort.Strings(order)
	return FormBody{Values: values, Order: order}, nil
}

// MultipartPart is a single named part of a Multipart body.
type MultipartPart struct {
	Name      string
	Data      []byte
	Filename  string // optional
	MediaType string // optional
}

// MultipartBody is an ordered list of parts encoded per RFC 7578. The
// boundary is fresh and random for every call to Encode.
type MultipartBody struct {
	Parts []MultipartPart
}

func (MultipartBody) isBodyVariant() {}

func (b MultipartBody) Encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range b.Parts {
		var err error
		var pw interface{ Write([]byte) (int, error) }
		if p.Filename != "" {
			h := make(map[string][]string)
			h["Content-Disposition"] = []string{
				fmt.Sprintf(`form-data; name=%q; filename=%q`, p.Name, p.Filename),
			}
			if p.MediaType != "" {
				h["Content-Type"] = []string{p.MediaType}
			}
			part, err2 := w.CreatePart(h)
			if err2 != nil {
				return nil, "", fmt.Errorf("multipart create part failed: %w", err2)
			}
			pw = part
		} else {
			part, err2 := w.CreateFormField(p.Name)
			if err2 != nil {
				return nil, "", fmt.Errorf("multipart create field failed: %w", err2)
			}
			pw = part
		}
		if _, err = pw.Write(p.Data); err != nil {
			return nil, "", fmt.Errorf("multipart write failed: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("multipart close failed: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
