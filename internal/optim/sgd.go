package optim

import (
	"fmt"

	"github.com/born-ml/adgraph/internal/autodiff"
)

// SGD implements gradient descent with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
type SGD struct {
	params     []autodiff.Var
	lr         float64
	momentum   float64
	velocities map[autodiff.Var]float64
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer over leaf parameters.
//
// Example:
//
//	sgd := optim.NewSGD([]autodiff.Var{x, y}, optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	})
func NewSGD(params []autodiff.Var, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}

	return &SGD{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[autodiff.Var]float64),
	}
}

// Step performs a single optimization step.
//
// All gradients are read before any parameter changes. Parameters that
// didn't participate in the backward pass are skipped.
func (s *SGD) Step() error {
	grads, err := gradients(s.params)
	if err != nil {
		return err
	}

	for _, pg := range grads {
		param := pg.param
		update := pg.grad
		if s.momentum != 0 {
			update = s.momentum*s.velocities[param] + pg.grad
			s.velocities[param] = update
		}

		if err := setValue(param, param.Value()-s.lr*update); err != nil {
			return err
		}
	}
	return nil
}

// ZeroGrad clears pending contributions for all parameters.
func (s *SGD) ZeroGrad() {
	zeroGrad(s.params)
}

// GetLR returns the current learning rate.
func (s *SGD) GetLR() float64 {
	return s.lr
}

// SetLR updates the learning rate.
func (s *SGD) SetLR(lr float64) {
	s.lr = lr
}

// StateDict returns the optimizer state.
//
// With momentum, it exports the velocity of each parameter that has taken
// a step. State keys: "velocity.{param_index}".
func (s *SGD) StateDict() map[string]float64 {
	stateDict := make(map[string]float64)
	if s.momentum == 0 {
		return stateDict
	}

	for i, param := range s.params {
		velocity, exists := s.velocities[param]
		if !exists {
			continue
		}
		stateDict[fmt.Sprintf("velocity.%d", i)] = velocity
	}
	return stateDict
}

// LoadStateDict restores velocities exported by StateDict. Without
// momentum the state is ignored.
func (s *SGD) LoadStateDict(stateDict map[string]float64) error {
	if s.momentum == 0 {
		return nil
	}

	velocities := make(map[autodiff.Var]float64)
	for key, velocity := range stateDict {
		var i int
		if _, err := fmt.Sscanf(key, "velocity.%d", &i); err != nil || i < 0 || i >= len(s.params) {
			return fmt.Errorf("optim: unexpected state key %q", key)
		}
		velocities[s.params[i]] = velocity
	}
	s.velocities = velocities
	return nil
}
