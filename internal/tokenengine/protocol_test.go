package tokenengine

import "testing"

func TestParseBRCRejectsUnrecognizedContentType(t *testing.T) {
	body := []byte(`{"p":"bel-20","op":"mint","tick":"ordi","amt":"100"}`)
	if _, ok := ParseBRC("image/png", body); ok {
		t.Fatal("expected a non-text content type to be rejected")
	}
}

func TestParseBRCAcceptsWhitespaceAndCaseVariantsOfContentType(t *testing.T) {
	body := []byte(`{"p":"bel-20","op":"mint","tick":"ordi","amt":"100"}`)
	if _, ok := ParseBRC(" Text/Plain ; Charset=UTF-8 ", body); !ok {
		t.Fatal("expected a normalized content type match")
	}
}

func TestParseBRCDeploy(t *testing.T) {
	body := []byte(`{"p":"bel-20","op":"deploy","tick":"ordi","max":"21000000","lim":"1000","dec":"8"}`)
	action, ok := ParseBRC("text/plain", body)
	if !ok {
		t.Fatal("expected deploy to parse")
	}
	d, isDeploy := action.(*DeployProto)
	if !isDeploy {
		t.Fatalf("expected *DeployProto, got %T", action)
	}
	if d.Tick != "ordi" || d.Max != 21000000 || d.Lim != 1000 || d.Dec != 8 || d.Supply != 0 {
		t.Fatalf("unexpected deploy fields: %+v", d)
	}
}

func TestParseBRCDeployDefaultsDecAndSupply(t *testing.T) {
	body := []byte(`{"p":"bel-20","op":"deploy","tick":"ordi","max":"21000000","lim":"1000"}`)
	action, ok := ParseBRC("application/json", body)
	if !ok {
		t.Fatal("expected deploy to parse")
	}
	d := action.(*DeployProto)
	if d.Dec != defaultDec || d.Supply != defaultSupply {
		t.Fatalf("unexpected defaults: dec=%d supply=%d", d.Dec, d.Supply)
	}
}

func TestParseBRCDeployRejectsDecAboveEighteen(t *testing.T) {
	body := []byte(`{"p":"bel-20","op":"deploy","tick":"ordi","max":"1000","lim":"10","dec":"19"}`)
	if _, ok := ParseBRC("text/plain", body); ok {
		t.Fatal("expected dec=19 to be rejected")
	}
}

func TestParseBRCRejectsNonFourCharTick(t *testing.T) {
	body := []byte(`{"p":"bel-20","op":"mint","tick":"toolong","amt":"1"}`)
	if _, ok := ParseBRC("text/plain", body); ok {
		t.Fatal("expected a 7-character tick to be rejected")
	}
}

func TestParseBRCCanonicalizesTickCase(t *testing.T) {
	body := []byte(`{"p":"bel-20","op":"mint","tick":"ORDI","amt":"100"}`)
	action, ok := ParseBRC("text/plain", body)
	if !ok {
		t.Fatal("expected mint to parse")
	}
	if action.(*MintProto).Tick != "ordi" {
		t.Fatalf("expected tick lowercased, got %q", action.(*MintProto).Tick)
	}
}

func TestParseBRCRejectsMalformedJSON(t *testing.T) {
	if _, ok := ParseBRC("text/plain", []byte(`{not json`)); ok {
		t.Fatal("expected malformed JSON to be rejected")
	}
}

func TestParseBRCRejectsNumericAmtField(t *testing.T) {
	// amt must be a JSON string per the protocol's decimal-as-string
	// convention; a bare number is a schema violation.
	body := []byte(`{"p":"bel-20","op":"mint","tick":"ordi","amt":100}`)
	if _, ok := ParseBRC("text/plain", body); ok {
		t.Fatal("expected a bare numeric amt to be rejected")
	}
}

func TestParseBRCRejectsUnknownOp(t *testing.T) {
	body := []byte(`{"p":"bel-20","op":"burn","tick":"ordi","amt":"1"}`)
	if _, ok := ParseBRC("text/plain", body); ok {
		t.Fatal("expected an unrecognized op to be rejected")
	}
}
