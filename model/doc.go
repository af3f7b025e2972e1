// Package model implements the vacuum-tube device models and the residual
// evaluators the optimizers minimize.
//
// Families:
//
//	KorenTriode   Ip = 1000·E1^ex/kg1, E1 = Ep/kp·ln(1+exp(kp(1/mu + Eg/√(kvb+Ep²))))
//	KorenPentode  Ip = 1000·E1^ex/kg1·atan(Ep/kvb), E1 on Es; Is = 1000·(Eg+Es/mu)^ex/kg2
//	Derk, DerkE   Reefman pentode with space-charge knee and secondary emission
//
// Currents are in mA, voltages in V. A non-positive E1 yields zero current.
//
// Error functions skip points whose measured plate dissipation Ep·Ip/1000
// exceeds the limit (W), add the file's EgOffset to every grid voltage and
// replace non-finite totals with SentinelError so that optimizers are pushed
// away from infeasible regions.
//
// Reparameterize turns any function of a physical parameter vector into a
// function of multiplicative factors (parameter = |reference × factor|).
package model
