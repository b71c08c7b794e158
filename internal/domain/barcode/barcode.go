// Package barcode validates scanned payloads and classifies them into the
// symbologies the scanner accepts.
package barcode

import (
	"fmt"
	"strings"
)

// Symbology identifies a barcode encoding.
type Symbology string

const (
	EAN13   Symbology = "ean13"
	UPCA    Symbology = "upc_a"
	EAN8    Symbology = "ean8"
	UPCE    Symbology = "upc_e"
	ITF14   Symbology = "itf14"
	Code128 Symbology = "code128"
)

// All lists every symbology the scanner knows about, in preference order.
var All = []Symbology{EAN13, UPCA, EAN8, UPCE, ITF14, Code128}

// ParseSymbology maps a configuration name onto a Symbology.
func ParseSymbology(s string) (Symbology, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ean13", "ean-13":
		return EAN13, nil
	case "upc_a", "upca", "upc-a":
		return UPCA, nil
	case "ean8", "ean-8":
		return EAN8, nil
	case "upc_e", "upce", "upc-e":
		return UPCE, nil
	case "itf14", "itf", "itf-14":
		return ITF14, nil
	case "code128", "code-128":
		return Code128, nil
	default:
		return "", fmt.Errorf("unknown symbology %q", s)
	}
}

const maxLength = 64

// Normalize trims whitespace around a payload.
func Normalize(code string) string {
	return strings.TrimSpace(code)
}

// Validate checks that code is a non-empty payload of ASCII letters, digits
// and hyphens, as carried by Code 128 and Code 39 labels.
func Validate(code string) error {
	if code == "" {
		return fmt.Errorf("barcode is empty")
	}
	if len(code) > maxLength {
		return fmt.Errorf("barcode longer than %d characters", maxLength)
	}
	for _, r := range code {
		if !isPayloadChar(r) {
			return fmt.Errorf("barcode contains invalid character %q", r)
		}
	}
	return nil
}

// Detect infers the symbology of a payload from its length and GS1 check
// digit. Anything that is not a valid GS1 number is reported as Code 128.
func Detect(code string) Symbology {
	if !isDigits(code) {
		return Code128
	}
	switch len(code) {
	case 13:
		if validGS1(code) {
			return EAN13
		}
	case 12:
		if validGS1(code) {
			return UPCA
		}
	case 8:
		if validGS1(code) {
			return EAN8
		}
		if _, ok := ExpandUPCE(code); ok {
			return UPCE
		}
	case 6, 7:
		if _, ok := ExpandUPCE(code); ok {
			return UPCE
		}
	case 14:
		if validGS1(code) {
			return ITF14
		}
	}
	return Code128
}

// ExpandUPCE converts a UPC-E payload (6 digits, or 8 with number system
// and check digit) to its UPC-A form. The second result is false when the
// payload is not valid UPC-E.
func ExpandUPCE(code string) (string, bool) {
	if !isDigits(code) {
		return "", false
	}
	var ns, body, check string
	switch len(code) {
	case 6:
		ns, body = "0", code
	case 7:
		ns, body = code[:1], code[1:]
	case 8:
		ns, body, check = code[:1], code[1:7], code[7:]
	default:
		return "", false
	}
	if ns != "0" && ns != "1" {
		return "", false
	}

	var mfr, item string
	switch last := body[5]; {
	case last <= '2':
		mfr = body[0:2] + string(last) + "00"
		item = "00" + body[2:5]
	case last == '3':
		mfr = body[0:3] + "00"
		item = "000" + body[3:5]
	case last == '4':
		mfr = body[0:4] + "0"
		item = "0000" + body[4:5]
	default:
		mfr = body[0:5]
		item = "0000" + string(last)
	}

	upcaBody := ns + mfr + item
	digit := checkDigit(upcaBody)
	if check != "" && check[0] != digit {
		return "", false
	}
	return upcaBody + string(digit), true
}

// validGS1 verifies the trailing mod-10 check digit of an EAN/UPC/ITF-14 number.
func validGS1(code string) bool {
	if len(code) < 2 {
		return false
	}
	return checkDigit(code[:len(code)-1]) == code[len(code)-1]
}

// checkDigit computes the GS1 mod-10 check digit for body.
func checkDigit(body string) byte {
	sum := 0
	weight := 3
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * weight
		if weight == 3 {
			weight = 1
		} else {
			weight = 3
		}
	}
	return byte('0' + (10-sum%10)%10)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isPayloadChar(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '-'
}
