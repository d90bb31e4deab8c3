package licensekey

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// signMethod selects the base64 payload + detached signature response format.
const signMethod = 1

// Param is a single form field of an activation request, in wire spelling.
type Param struct {
	Name  string
	Value string
}

// ActivateParams is a finalized Key/Activate request. Build one with
// NewActivateParams; optional fields left unset are omitted from the wire form.
type ActivateParams struct {
	ProductID            uint64
	Key                  string
	Sign                 *bool
	MachineCode          *string
	FriendlyName         *string
	FieldsToReturn       *uint64
	Metadata             *bool
	FloatingTimeInterval *uint64 // seconds
	MaxOverdraft         *uint64
	OSInfo               *string
	ModelVersion         *uint64
	MethodVersion        *uint64
}

// SignMethod is fixed; the verifier only understands method 1.
func (p ActivateParams) SignMethod() uint64 { return signMethod }

// Params returns the request fields in declaration order.
func (p ActivateParams) Params() []Param {
	params := []Param{
		{"ProductId", strconv.FormatUint(p.ProductID, 10)},
		{"Key", p.Key},
	}
	addBool := func(name string, v *bool) {
		if v != nil {
			params = append(params, Param{name, strconv.FormatBool(*v)})
		}
	}
	addUint := func(name string, v *uint64) {
		if v != nil {
			params = append(params, Param{name, strconv.FormatUint(*v, 10)})
		}
	}
	addString := func(name string, v *string) {
		if v != nil {
			params = append(params, Param{name, *v})
		}
	}

	addBool("Sign", p.Sign)
	addString("MachineCode", p.MachineCode)
	addString("FriendlyName", p.FriendlyName)
	addUint("FieldsToReturn", p.FieldsToReturn)
	params = append(params, Param{"SignMethod", strconv.Itoa(signMethod)})
	addBool("Metadata", p.Metadata)
	addUint("FloatingTimeInterval", p.FloatingTimeInterval)
	addUint("MaxOverdraft", p.MaxOverdraft)
	addString("OSInfo", p.OSInfo)
	addUint("ModelVersion", p.ModelVersion)
	addUint("v", p.MethodVersion)

	return params
}

// Encode renders the form body with the access token as the first field.
// Field order is deterministic; url.Values would sort the keys.
func (p ActivateParams) Encode(token string) string {
	var b strings.Builder
	b.WriteString("token=")
	b.WriteString(url.QueryEscape(token))
	for _, kv := range p.Params() {
		b.WriteByte('&')
		b.WriteString(url.QueryEscape(kv.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.Value))
	}
	return b.String()
}

// ActivateParamsBuilder collects activation fields. ProductID and Key are
// required; Build reports whichever of them was never set.
type ActivateParamsBuilder struct {
	productID *uint64
	key       *string
	p         ActivateParams
}

func NewActivateParams() *ActivateParamsBuilder {
	return &ActivateParamsBuilder{}
}

func (b *ActivateParamsBuilder) ProductID(id uint64) *ActivateParamsBuilder {
	b.productID = &id
	return b
}

func (b *ActivateParamsBuilder) Key(key string) *ActivateParamsBuilder {
	b.key = &key
	return b
}

// Sign asks the server for a signed (base64 + signature) response.
func (b *ActivateParamsBuilder) Sign(sign bool) *ActivateParamsBuilder {
	b.p.Sign = &sign
	return b
}

func (b *ActivateParamsBuilder) MachineCode(code string) *ActivateParamsBuilder {
	b.p.MachineCode = &code
	return b
}

func (b *ActivateParamsBuilder) FriendlyName(name string) *ActivateParamsBuilder {
	b.p.FriendlyName = &name
	return b
}

// FieldsToReturn is a bitmask of fields the server should leave out.
func (b *ActivateParamsBuilder) FieldsToReturn(mask uint64) *ActivateParamsBuilder {
	b.p.FieldsToReturn = &mask
	return b
}

func (b *ActivateParamsBuilder) Metadata(metadata bool) *ActivateParamsBuilder {
	b.p.Metadata = &metadata
	return b
}

// FloatingTimeInterval is sent in whole seconds. Negative durations send 0.
func (b *ActivateParamsBuilder) FloatingTimeInterval(d time.Duration) *ActivateParamsBuilder {
	secs := uint64(max(d, 0) / time.Second)
	b.p.FloatingTimeInterval = &secs
	return b
}

func (b *ActivateParamsBuilder) MaxOverdraft(n uint64) *ActivateParamsBuilder {
	b.p.MaxOverdraft = &n
	return b
}

func (b *ActivateParamsBuilder) OSInfo(info string) *ActivateParamsBuilder {
	b.p.OSInfo = &info
	return b
}

func (b *ActivateParamsBuilder) ModelVersion(v uint64) *ActivateParamsBuilder {
	b.p.ModelVersion = &v
	return b
}

func (b *ActivateParamsBuilder) MethodVersion(v uint64) *ActivateParamsBuilder {
	b.p.MethodVersion = &v
	return b
}

// Build finalizes the request. It fails with a KindValidation error naming
// every required field that was not set.
func (b *ActivateParamsBuilder) Build() (ActivateParams, error) {
	var missing []string
	if b.productID == nil {
		missing = append(missing, "ProductId")
	}
	if b.key == nil {
		missing = append(missing, "Key")
	}
	if len(missing) > 0 {
		return ActivateParams{}, &Error{
			Kind:    KindValidation,
			Message: fmt.Sprintf("missing required field(s): %s", strings.Join(missing, ", ")),
		}
	}

	p := b.p
	p.ProductID = *b.productID
	p.Key = *b.key
	return p, nil
}
