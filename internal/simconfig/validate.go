package simconfig

import "fmt"

// Validate checks every range constraint spec §6 places on the YAML
// inputs, returning the first violation wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Simulation.DurationSec <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrDurationNotPositive)
	}
	if c.Network.NumNodes <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrNumNodesNotPositive)
	}
	lat := c.Network.Latency
	if lat.MinLatencySec < 0 || lat.MinLatencySec > lat.MaxLatencySec {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrLatencyRange)
	}
	if c.Network.Gossip.PeeringDegree < 1 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrPeeringDegreeTooSmall)
	}
	if c.Mix.TransmissionRatePerSec <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrTransmissionRate)
	}
	if c.Mix.MaxMessageSize <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrMaxMessageSize)
	}
	mp := c.Mix.MixPath
	if mp.MinLength < 1 || mp.MinLength > mp.MaxLength {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrMixPathRange)
	}
	if _, ok := temporalMixTypes[c.Mix.TemporalMix.MixType]; !ok {
		return fmt.Errorf("%w: %w: %q", ErrInvalidConfig, ErrUnknownTemporalMix, c.Mix.TemporalMix.MixType)
	}
	prob := c.Logic.SenderLottery.Probability
	if prob < 0 || prob > 1 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrSenderLotteryRange)
	}
	return nil
}
