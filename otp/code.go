package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	codeMin = 100000
	codeMax = 999999
)

// randomCode draws a six digit code uniformly from 100000..999999.
func randomCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		panic(err) // crypto/rand only fails if the OS entropy source is broken
	}
	return fmt.Sprintf("%d", n.Int64()+codeMin)
}

func formatPurpose(purpose string) string {
	p := strings.ReplaceAll(purpose, "_", " ")
	return cases.Title(language.English).String(p)
}
