package adapter

import "github.com/ajhcs/beacon/pkg/model"

// Response is the outcome of one guest call (§4.4: "Response = { value |
// trap | out-of-fuel }"). Value is nil for a void-returning export.
type Response struct {
	Outcome model.Outcome
	Value   *int64
	Trap    string
}
