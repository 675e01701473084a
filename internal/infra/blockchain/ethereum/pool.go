package ethereum

import (
	"context"
	"errors"
	"fmt"

	"github.com/gabapcia/txtracker/internal/action"
)

// Contract names looked up in action.ExecutorConfig.Contracts.
const (
	ContractJuniorOperator = "juniorOperator"
	ContractSeniorOperator = "seniorOperator"
	ContractReserve        = "reserve"
	ContractAssessor       = "assessor"
)

const (
	supplyOrderSignature = "supplyOrder(uint256)"
	redeemOrderSignature = "redeemOrder(uint256)"
	fileSignature        = "file(bytes32,uint256)"
)

var errNoSession = errors.New("execution context has no session")

// encodeArgs turns action arguments into ABI words.
type encodeArgs func(args []string) ([][wordSize]byte, error)

// PoolActions returns a handler for every action: tranche investments and
// redemptions are orders on the operator contracts, and parameter changes
// are file calls on the reserve and assessor.
func PoolActions() map[action.Name]action.Handler {
	return map[action.Name]action.Handler{
		action.InvestJunior:      contractCall(ContractJuniorOperator, supplyOrderSignature, amountArg),
		action.InvestSenior:      contractCall(ContractSeniorOperator, supplyOrderSignature, amountArg),
		action.RedeemJunior:      contractCall(ContractJuniorOperator, redeemOrderSignature, amountArg),
		action.RedeemSenior:      contractCall(ContractSeniorOperator, redeemOrderSignature, amountArg),
		action.SetMaxReserve:     contractCall(ContractReserve, fileSignature, fileArgs("maxReserve", false)),
		action.SetMinJuniorRatio: contractCall(ContractAssessor, fileSignature, fileArgs("minJuniorRatio", true)),
	}
}

// contractCall builds a handler sending signature with encoded args to the
// named contract. A broadcast call yields an outcome carrying its hash.
func contractCall(contract, signature string, encode encodeArgs) action.Handler {
	return func(ctx context.Context, ec action.Context, args []string) (action.Outcome, error) {
		if ec.Session == nil {
			return action.Outcome{}, errNoSession
		}

		to, err := ec.Config.Contract(contract)
		if err != nil {
			return action.Outcome{}, action.Reject(fmt.Sprintf("%s contract is not configured", contract), err)
		}

		words, err := encode(args)
		if err != nil {
			return action.Outcome{}, err
		}

		hash, err := ec.Session.SendTransaction(ctx, action.Call{
			To:   to,
			Data: encodeCall(signature, words...),
		})
		if err != nil {
			return action.Outcome{}, err
		}

		return action.Outcome{Hash: hash}, nil
	}
}

// amountArg expects a single integer amount in the currency's base unit.
func amountArg(args []string) ([][wordSize]byte, error) {
	if len(args) != 1 {
		return nil, action.Reject("expected a single amount", fmt.Errorf("got %d arguments", len(args)))
	}

	amount, err := encodeUint256(args[0])
	if err != nil {
		return nil, action.Reject("invalid amount", err)
	}

	return [][wordSize]byte{amount}, nil
}

// fileArgs expects a single value for the named parameter. Ratios accept
// decimal fractions and are scaled to 27 decimals.
func fileArgs(parameter string, ratio bool) encodeArgs {
	return func(args []string) ([][wordSize]byte, error) {
		if len(args) != 1 {
			return nil, action.Reject(fmt.Sprintf("expected a single %s value", parameter), fmt.Errorf("got %d arguments", len(args)))
		}

		name, err := encodeBytes32(parameter)
		if err != nil {
			return nil, err
		}

		if !ratio {
			value, err := encodeUint256(args[0])
			if err != nil {
				return nil, action.Reject(fmt.Sprintf("invalid %s", parameter), err)
			}
			return [][wordSize]byte{name, value}, nil
		}

		value, err := parseRay(args[0])
		if err != nil {
			return nil, action.Reject(fmt.Sprintf("invalid %s", parameter), err)
		}
		return [][wordSize]byte{name, value.Bytes32()}, nil
	}
}
