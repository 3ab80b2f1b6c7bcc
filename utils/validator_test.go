package utils

import "testing"

func TestValidateVarContactID(t *testing.T) {
	valid := []string{"10001", "123456789012345", "99999"}
	for _, v := range valid {
		if ferr := ValidateVar("contact_id", v, "required,contactid"); ferr != nil {
			t.Fatalf("%q rejected: %v", v, ferr)
		}
	}

	invalid := []string{"", "0123456", "1234", "1234567890123456", "12a45", "-12345"}
	for _, v := range invalid {
		if ferr := ValidateVar("contact_id", v, "required,contactid"); ferr == nil {
			t.Fatalf("%q accepted", v)
		}
	}
}

func TestValidateVarSlotValues(t *testing.T) {
	for _, v := range []string{"red", "green", "blue"} {
		if ferr := ValidateVar("color", v, "slotcolor"); ferr != nil {
			t.Fatalf("color %q rejected: %v", v, ferr)
		}
	}
	if ferr := ValidateVar("color", "purple", "slotcolor"); ferr == nil {
		t.Fatal("color purple accepted")
	}

	for _, v := range []string{"attacker", "defender", "supporter"} {
		if ferr := ValidateVar("job", v, "slotjob"); ferr != nil {
			t.Fatalf("job %q rejected: %v", v, ferr)
		}
	}
	if ferr := ValidateVar("job", "healer", "slotjob"); ferr == nil {
		t.Fatal("job healer accepted")
	}
}

func TestValidateStructNamesField(t *testing.T) {
	type req struct {
		GameAccountID string `validate:"required,min=1,max=13"`
	}

	ferr := ValidateStruct(req{})
	if ferr == nil {
		t.Fatal("expected failure")
	}
	if ferr.Field != "game_account_id" {
		t.Fatalf("expected snake_cased field name, got %q", ferr.Field)
	}
	if ferr.Message == "" {
		t.Fatal("expected a message")
	}
}

func TestSnakeCase(t *testing.T) {
	cases := map[string]string{
		"Nickname":      "nickname",
		"GameAccountID": "game_account_id",
		"TeamCode":      "team_code",
		"ContactID":     "contact_id",
	}
	for in, want := range cases {
		if got := snakeCase(in); got != want {
			t.Fatalf("snakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
