package drc20

import (
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

const (
	Protocol = "drc-20"

	TickLength = 4

	// MaxDecimals is the largest dec a deploy may declare, and the default.
	MaxDecimals = 18

	// payloads shorter than this can't hold a complete operation
	minPayloadLength = 40
)

type rawPayload struct {
	P    string `json:"p"`    // required
	Op   string `json:"op"`   // required
	Tick string `json:"tick"` // required

	// for deploy operations
	Max string  `json:"max"` // required
	Lim *string `json:"lim"`
	Dec *string `json:"dec"`

	// for mint/transfer operations
	Amt string `json:"amt"` // required
}

type Payload struct {
	Op           Operation
	Tick         string // lower-cased tick
	OriginalTick string // original tick before lower-cased

	// for deploy operations
	Max decimal.Decimal
	Lim decimal.Decimal
	Dec uint16

	// for mint/transfer operations
	Amt decimal.Decimal
}

var (
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrPayloadTooShort        = errors.New("payload too short")
	ErrInvalidProtocol        = errors.New("invalid protocol: must be 'drc-20'")
	ErrInvalidOperation       = errors.New("invalid operation for drc-20: must be one of 'deploy', 'mint', or 'transfer'")
	ErrInvalidTickLength      = errors.New("invalid tick length: must be 4 bytes")
	ErrEmptyMax               = errors.New("empty max")
	ErrInvalidDec             = errors.New("invalid dec")
	ErrInvalidAmt             = errors.New("invalid amt")
	ErrInvalidNumber          = errors.New("invalid number")
	ErrNumberOverflow         = errors.New("number overflow: max value is (2^64-1)")
)

// IsCandidate reports whether an inscription with this content type may carry an operation.
func IsCandidate(contentType string) bool {
	return strings.HasPrefix(contentType, "text/plain") || strings.HasPrefix(contentType, "application/json")
}

// ParsePayload parses the body of an inscription as a drc-20 operation. Any error means the
// inscription is not a drc-20 operation.
func ParsePayload(contentType string, content []byte) (*Payload, error) {
	if !IsCandidate(contentType) {
		return nil, errors.WithStack(ErrUnsupportedContentType)
	}
	if len(content) < minPayloadLength {
		return nil, errors.WithStack(ErrPayloadTooShort)
	}
	var p rawPayload
	if err := json.Unmarshal(content, &p); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal payload as json")
	}

	if p.P != Protocol {
		return nil, errors.WithStack(ErrInvalidProtocol)
	}
	if !Operation(p.Op).IsValid() {
		return nil, errors.WithStack(ErrInvalidOperation)
	}
	// lower-casing may change the byte length of non-ascii ticks
	tick := strings.ToLower(p.Tick)
	if len(p.Tick) != TickLength || len(tick) != TickLength {
		return nil, errors.WithStack(ErrInvalidTickLength)
	}

	parsed := Payload{
		Op:           Operation(p.Op),
		Tick:         tick,
		OriginalTick: p.Tick,
	}

	switch parsed.Op {
	case OperationDeploy:
		if p.Max == "" {
			return nil, errors.WithStack(ErrEmptyMax)
		}
		dec := uint64(MaxDecimals)
		if p.Dec != nil && *p.Dec != "" {
			var err error
			dec, err = strconv.ParseUint(*p.Dec, 10, 16)
			if err != nil {
				return nil, errors.Wrap(ErrInvalidDec, err.Error())
			}
			if dec > MaxDecimals {
				return nil, errors.WithStack(ErrInvalidDec)
			}
		}
		parsed.Dec = uint16(dec)

		max, err := ParseNumber(p.Max, parsed.Dec)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse max")
		}
		parsed.Max = max

		parsed.Lim = max
		if p.Lim != nil {
			parsed.Lim, err = ParseNumber(*p.Lim, parsed.Dec)
			if err != nil {
				return nil, errors.Wrap(err, "failed to parse lim")
			}
		}
	case OperationMint, OperationTransfer:
		if p.Amt == "" {
			return nil, errors.WithStack(ErrInvalidAmt)
		}
		// NOTE: tick decimals are checked against the deploy when the operation is applied
		amt, err := ParseNumber(p.Amt, MaxDecimals)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse amt")
		}
		parsed.Amt = amt
	}
	return &parsed, nil
}

// max number for all numeric fields (except dec) is (2^64-1)
var maxNumber = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

// ParseNumber parses a plain decimal string: digits with an optional fraction of at most maxDec digits.
// Signs, exponents and a leading or trailing dot are rejected.
func ParseNumber(s string, maxDec uint16) (decimal.Decimal, error) {
	if s == "" || strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") || strings.ContainsAny(s, "eE+-") {
		return decimal.Decimal{}, errors.Wrapf(ErrInvalidNumber, "%q", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(ErrInvalidNumber, "%q: %v", s, err)
	}
	if -d.Exponent() > int32(maxDec) {
		return decimal.Decimal{}, errors.Wrapf(ErrInvalidNumber, "%q has more than %d decimals", s, maxDec)
	}
	if d.GreaterThan(maxNumber) {
		return decimal.Decimal{}, errors.WithStack(ErrNumberOverflow)
	}
	return d, nil
}

// IsAmountWithinDecimals reports whether amt has at most dec fractional digits.
func IsAmountWithinDecimals(amt decimal.Decimal, dec uint16) bool {
	return -amt.Exponent() <= int32(dec)
}
