package services

import "opinion-market/internal/models"

// ScoringPolicy turns an opinion and the market's attested sentiment score
// into a settlement weight. Implementations must be deterministic and must
// return a non-negative weight.
type ScoringPolicy interface {
	Weight(opinion *models.Opinion, sentimentScore int16) (int64, error)
}

// ProximityScoring is the default policy: weight grows with stake, with how
// close the staker's prediction landed to the attested score, and with the
// net credibility signal accumulated from reactions.
type ProximityScoring struct{}

// Weight computes stake * proximity * credibility / 10000.
//
// Proximity is 101 - |prediction - score|, in [1, 101]; an opinion with no
// prediction gets the midpoint 51. Credibility is a basis-point multiplier
// 10000 + clamp(backed - slashed, -stake, stake) * 5000 / stake, clamped to
// [5000, 15000], so reactions can at most halve or 1.5x the weight.
func (ProximityScoring) Weight(opinion *models.Opinion, sentimentScore int16) (int64, error) {
	proximity := int64(51)
	if opinion.Prediction != nil {
		diff := int64(*opinion.Prediction) - int64(sentimentScore)
		if diff < 0 {
			diff = -diff
		}
		proximity = 101 - diff
	}

	credBps := int64(10000)
	if opinion.StakeAmount > 0 {
		net := opinion.BackedAmount - opinion.SlashedAmount
		if net > opinion.StakeAmount {
			net = opinion.StakeAmount
		}
		if net < -opinion.StakeAmount {
			net = -opinion.StakeAmount
		}
		credBps += net * 5000 / opinion.StakeAmount
	}

	base, err := checkedMul(opinion.StakeAmount, proximity)
	if err != nil {
		return 0, err
	}
	weighted, err := checkedMul(base, credBps)
	if err != nil {
		return 0, err
	}
	return weighted / 10000, nil
}
