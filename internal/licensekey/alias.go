package licensekey

import (
	"encoding/json"
	"fmt"
)

// aliasedField binds a destination to the JSON names it may appear under.
// Names are tried in order; the first one present wins.
type aliasedField struct {
	names    []string
	dst      any
	required bool
}

func field(dst any, names ...string) aliasedField {
	return aliasedField{names: names, dst: dst}
}

// requiredField is a field whose absence (or null) fails the decode.
func requiredField(dst any, names ...string) aliasedField {
	return aliasedField{names: names, dst: dst, required: true}
}

// decodeAliased fills each field from the first matching name in data.
// Members not named in the table are ignored. A JSON null leaves the
// destination untouched.
func decodeAliased(data []byte, fields []aliasedField) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	if members == nil {
		return fmt.Errorf("expected JSON object, got null")
	}

	for _, f := range fields {
		found := false
		for _, name := range f.names {
			raw, ok := members[name]
			if !ok || string(raw) == "null" {
				continue
			}
			if err := json.Unmarshal(raw, f.dst); err != nil {
				return fmt.Errorf("field %s: %w", name, err)
			}
			found = true
			break
		}
		if f.required && !found {
			return fmt.Errorf("missing required field %s", f.names[0])
		}
	}
	return nil
}

// Alias tables. Canonical (server PascalCase) spelling first, then the
// camelCase spelling used by newer responses.

func (k *LicenseKey) aliases() []aliasedField {
	return []aliasedField{
		requiredField(&k.ProductID, "ProductId", "productId"),
		field(&k.ID, "Id", "id", "ID"),
		field(&k.Key, "Key", "key"),
		field(&k.Created, "Created", "created"),
		field(&k.Expires, "Expires", "expires"),
		field(&k.Period, "Period", "period"),
		field(&k.Feature1, "F1", "f1", "feature1"),
		field(&k.Feature2, "F2", "f2", "feature2"),
		field(&k.Feature3, "F3", "f3", "feature3"),
		field(&k.Feature4, "F4", "f4", "feature4"),
		field(&k.Feature5, "F5", "f5", "feature5"),
		field(&k.Feature6, "F6", "f6", "feature6"),
		field(&k.Feature7, "F7", "f7", "feature7"),
		field(&k.Feature8, "F8", "f8", "feature8"),
		field(&k.Notes, "Notes", "notes"),
		field(&k.Block, "Block", "block"),
		field(&k.GlobalID, "GlobalId", "globalId"),
		field(&k.Customer, "Customer", "customer"),
		field(&k.ActivatedMachines, "ActivatedMachines", "activatedMachines"),
		field(&k.TrialActivation, "TrialActivation", "trialActivation"),
		field(&k.MaxNoOfMachines, "MaxNoOfMachines", "maxNoOfMachines"),
		field(&k.AllowedMachines, "AllowedMachines", "allowedMachines"),
		field(&k.DataObjects, "DataObjects", "dataObjects"),
		field(&k.SignDate, "SignDate", "signDate"),
		field(&k.Signature, "Signature", "signature"),
	}
}

func (c *Customer) aliases() []aliasedField {
	return []aliasedField{
		field(&c.ID, "Id", "id"),
		field(&c.Name, "Name", "name"),
		field(&c.Email, "Email", "email"),
		field(&c.CompanyName, "CompanyName", "companyName"),
		field(&c.Created, "Created", "created"),
	}
}

func (m *ActivatedMachine) aliases() []aliasedField {
	return []aliasedField{
		field(&m.Mid, "Mid", "mid"),
		field(&m.IP, "IP", "ip"),
		field(&m.Time, "Time", "time"),
	}
}

func (d *DataObject) aliases() []aliasedField {
	return []aliasedField{
		field(&d.ID, "Id", "id"),
		field(&d.Name, "Name", "name"),
		field(&d.StringValue, "StringValue", "stringValue"),
		field(&d.IntValue, "IntValue", "intValue"),
	}
}
