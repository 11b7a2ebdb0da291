package services

import (
	"fmt"
	"regexp"
	"strconv"
)

// Code prefixes and zero-padding widths for generated codes.
const (
	PaymentCodePrefix = "P"
	PaymentCodeWidth  = 4
	WorkerCodePrefix  = "W"
	WorkerCodeWidth   = 2
	JobCodePrefix     = "J"
	JobCodeWidth      = 2
	ExpenseCodePrefix = "E"
	ExpenseCodeWidth  = 4
)

// CodeAllocator hands out sequential codes above the highest existing one.
// Codes it has issued count as existing, so a batch never repeats itself.
type CodeAllocator struct {
	prefix  string
	width   int
	pattern *regexp.Regexp
	max     int
}

func NewCodeAllocator(prefix string, width int, existing []string) *CodeAllocator {
	a := &CodeAllocator{
		prefix:  prefix,
		width:   width,
		pattern: regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `(\d+)`),
	}
	for _, code := range existing {
		a.observe(code)
	}
	return a
}

func (a *CodeAllocator) observe(code string) {
	m := a.pattern.FindStringSubmatch(code)
	if m == nil {
		return
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return
	}
	if n > a.max {
		a.max = n
	}
}

// Next returns the next free code and reserves it.
func (a *CodeAllocator) Next() string {
	a.max++
	return fmt.Sprintf("%s%0*d", a.prefix, a.width, a.max)
}

// NextCode is a one-shot CodeAllocator.
func NextCode(prefix string, width int, existing []string) string {
	return NewCodeAllocator(prefix, width, existing).Next()
}
