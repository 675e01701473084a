package action

import (
	"slices"

	"github.com/gabapcia/txtracker/internal/pkg/validator"
)

// Name identifies an executable action. The set is closed: only the
// constants below are dispatchable, and a Registry must bind every one.
type Name string

const (
	InvestJunior      Name = "investJunior"
	InvestSenior      Name = "investSenior"
	RedeemJunior      Name = "redeemJunior"
	RedeemSenior      Name = "redeemSenior"
	SetMaxReserve     Name = "setMaxReserve"
	SetMinJuniorRatio Name = "setMinJuniorRatio"
)

// names lists every executable action in declaration order.
var names = []Name{
	InvestJunior,
	InvestSenior,
	RedeemJunior,
	RedeemSenior,
	SetMaxReserve,
	SetMinJuniorRatio,
}

// validationTag is the struct tag that accepts only known action names.
const validationTag = "tx_action"

func init() {
	if err := validator.RegisterValidation(validationTag, func(v string) bool {
		return Name(v).Valid()
	}); err != nil {
		panic(err)
	}
}

// Names returns every executable action.
func Names() []Name {
	return slices.Clone(names)
}

// Valid reports whether n belongs to the closed set of actions.
func (n Name) Valid() bool {
	return slices.Contains(names, n)
}

func (n Name) String() string {
	return string(n)
}
