package combat

const (
	EngagementCooldown = 0.5

	idealMeleeDistance = 0.6
	maxMeleeSeparation = 0.9
	meleePullFactor    = 0.3
	meleePullSpeed     = 5.0
	meleeSnapFactor    = 0.5
	minDistance        = 0.001

	optimalRangeFactor  = 0.85
	optimalRangeBuffer  = 0.5
	newCommandThreshold = 0.5

	archerHoldRange    = 1.5
	archerHoldDamage   = 1.3
	spearmanHoldDamage = 1.5
	holdHealthBonus    = 1.2

	spearmanVsCavalry     = 2.0
	archerVsElephant      = 1.5
	archerHighGround      = 1.25
	spearmanHighGround    = 1.15
	highGroundThreshold   = 0.5
	highGroundArmor       = 0.8
	highGroundHealthBonus = 1.1

	guardReturnThreshold = 2.0

	arrowStartHeight = 1.0
	arrowStartOffset = 0.35
	arrowSpread      = 0.2
)
