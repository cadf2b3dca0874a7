package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TokenIssuer is the origin marker every genuine note token carries.
const TokenIssuer = "Central Bank"

// TokenGeneration is the copy marker of a genuine token. World engines stamp
// duplicated tokens with a higher generation, which fails validation.
const TokenGeneration = 1

// Token is the physical, in-world representation of a note. The core only
// defines the verifiable shape; cosmetic rendering beyond it belongs to the
// presentation layer.
type Token struct {
	Title      string
	Issuer     string
	Generation int
	Pages      []string
}

var serialPattern = regexp.MustCompile(`Serial:\s*([a-z2-7]{26})`)

// RenderToken produces the canonical token for a note. The first page embeds
// the full serial so validation can recover it; the second page carries the
// security notice.
func RenderToken(note Note, symbol, bankName string) Token {
	issued := note.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}

	var page strings.Builder
	fmt.Fprintf(&page, "%s OF %s\n\n", strings.ToUpper(TokenIssuer), strings.ToUpper(bankName))
	fmt.Fprintf(&page, "%s %d\n\n", symbol, note.Denomination)
	fmt.Fprintf(&page, "Serial: %s\n", note.Serial)
	fmt.Fprintf(&page, "Issued: %s\n\n", issued.UTC().Format("2006-01-02"))
	page.WriteString("Redeemable for reserve assets at any vault location.")

	security := "SECURITY NOTICE\n\n" +
		"This note is protected by the ledger verification system.\n" +
		"Counterfeit notes will be confiscated."

	return Token{
		Title:      TokenTitle(symbol, note.Denomination),
		Issuer:     TokenIssuer,
		Generation: TokenGeneration,
		Pages:      []string{page.String(), security},
	}
}

// TokenTitle returns the canonical title for a denomination.
func TokenTitle(symbol string, denomination int) string {
	return fmt.Sprintf("%s%d Note", symbol, denomination)
}

// ParseTokenTitle extracts the denomination from a token title, reporting
// whether the title matches the canonical "<symbol><denomination> Note" form.
func ParseTokenTitle(title, symbol string) (int, bool) {
	rest, ok := strings.CutPrefix(title, symbol)
	if !ok {
		return 0, false
	}
	digits, ok := strings.CutSuffix(rest, " Note")
	if !ok || digits == "" {
		return 0, false
	}
	denomination, err := strconv.Atoi(digits)
	if err != nil || denomination <= 0 {
		return 0, false
	}
	return denomination, true
}

// ExtractSerial recovers the embedded serial from token pages. It returns
// the empty string when no serial can be found.
func (t Token) ExtractSerial() string {
	for _, page := range t.Pages {
		if match := serialPattern.FindStringSubmatch(page); match != nil {
			return match[1]
		}
	}
	return ""
}
