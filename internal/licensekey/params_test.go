package licensekey

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestActivateParamsEncode(t *testing.T) {
	t.Run("required fields only", func(t *testing.T) {
		params, err := NewActivateParams().
			ProductID(1).
			Key("key").
			Build()
		if err != nil {
			t.Fatalf("build: %v", err)
		}

		got := params.Encode("TOKEN")
		want := "token=TOKEN&ProductId=1&Key=key&SignMethod=1"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("optional fields keep declaration order", func(t *testing.T) {
		params, err := NewActivateParams().
			ProductID(1).
			Key("key").
			Sign(true).
			MaxOverdraft(4).
			MachineCode("code").
			Build()
		if err != nil {
			t.Fatalf("build: %v", err)
		}

		got := params.Encode("TOKEN")
		want := "token=TOKEN&ProductId=1&Key=key&Sign=true&MachineCode=code&SignMethod=1&MaxOverdraft=4"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("every field", func(t *testing.T) {
		params, err := NewActivateParams().
			MethodVersion(1).
			ModelVersion(3).
			OSInfo("linux").
			MaxOverdraft(2).
			FloatingTimeInterval(90 * time.Second).
			Metadata(true).
			FieldsToReturn(8).
			FriendlyName("build box").
			MachineCode("m1").
			Sign(false).
			Key("AAAA-BBBB").
			ProductID(3646).
			Build()
		if err != nil {
			t.Fatalf("build: %v", err)
		}

		got := params.Encode("T")
		want := "token=T&ProductId=3646&Key=AAAA-BBBB&Sign=false&MachineCode=m1&FriendlyName=build+box" +
			"&FieldsToReturn=8&SignMethod=1&Metadata=true&FloatingTimeInterval=90&MaxOverdraft=2" +
			"&OSInfo=linux&ModelVersion=3&v=1"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("values are form escaped", func(t *testing.T) {
		params, err := NewActivateParams().ProductID(1).Key("a&b=c").Build()
		if err != nil {
			t.Fatalf("build: %v", err)
		}

		got := params.Encode("WyI0NjUi=")
		want := "token=WyI0NjUi%3D&ProductId=1&Key=a%26b%3Dc&SignMethod=1"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("negative floating interval sends zero", func(t *testing.T) {
		params, err := NewActivateParams().ProductID(1).Key("k").FloatingTimeInterval(-90 * time.Second).Build()
		if err != nil {
			t.Fatalf("build: %v", err)
		}

		got := params.Encode("T")
		want := "token=T&ProductId=1&Key=k&SignMethod=1&FloatingTimeInterval=0"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("encoding is repeatable", func(t *testing.T) {
		params, _ := NewActivateParams().ProductID(7).Key("k").MachineCode("m").Build()
		first := params.Encode("TOKEN")
		for i := 0; i < 10; i++ {
			if got := params.Encode("TOKEN"); got != first {
				t.Fatalf("encoding changed between calls: %q vs %q", first, got)
			}
		}
	})
}

func TestActivateParamsBuild(t *testing.T) {
	t.Run("missing product id", func(t *testing.T) {
		_, err := NewActivateParams().Key("key").Build()
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if !strings.Contains(err.Error(), "ProductId") {
			t.Errorf("expected error to name ProductId, got %v", err)
		}
	})

	t.Run("missing both", func(t *testing.T) {
		_, err := NewActivateParams().Sign(true).Build()
		if KindOf(err) != KindValidation {
			t.Fatalf("expected validation kind, got %v", KindOf(err))
		}
		if !strings.Contains(err.Error(), "ProductId, Key") {
			t.Errorf("expected error to name both fields, got %v", err)
		}
	})

	t.Run("zero values count as set", func(t *testing.T) {
		params, err := NewActivateParams().ProductID(0).Key("").Build()
		if err != nil {
			t.Fatalf("expected explicit zero values to satisfy required fields: %v", err)
		}
		if params.SignMethod() != 1 {
			t.Errorf("expected SignMethod 1, got %d", params.SignMethod())
		}
	})

	t.Run("unset optionals are nil", func(t *testing.T) {
		params, _ := NewActivateParams().ProductID(1).Key("k").Build()
		if params.Sign != nil || params.MachineCode != nil || params.MaxOverdraft != nil {
			t.Error("expected optional fields to be unset")
		}
		if len(params.Params()) != 3 {
			t.Errorf("expected 3 params, got %d", len(params.Params()))
		}
	})
}
