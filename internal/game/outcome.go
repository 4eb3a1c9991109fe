package game

// Verdict is the result of comparing a challenger against the first winner.
type Verdict int

const (
	// Pending means the challenger still has turns left to catch up.
	Pending Verdict = iota
	FirstWinnerWins
	Tie
	// ChallengerWins only happens if the challenger solved the code in fewer
	// attempts, which strict turn alternation normally rules out.
	ChallengerWins
)

func (v Verdict) String() string {
	switch v {
	case Pending:
		return "pending"
	case FirstWinnerWins:
		return "first_winner_wins"
	case Tie:
		return "tie"
	case ChallengerWins:
		return "challenger_wins"
	}
	return "unknown"
}

// CompareOutcome decides a match once somebody has cracked the code.
// The challenger has to beat the first winner's attempt count; matching it is
// a tie and needing more attempts is a loss, even if the code was eventually
// solved. A timed-out turn is passed in as challengerWon == false.
func CompareOutcome(firstWinnerAttempts, challengerAttempts int, challengerWon bool) Verdict {
	if challengerWon {
		switch {
		case challengerAttempts == firstWinnerAttempts:
			return Tie
		case challengerAttempts < firstWinnerAttempts:
			return ChallengerWins
		default:
			return FirstWinnerWins
		}
	}
	if challengerAttempts >= firstWinnerAttempts {
		return FirstWinnerWins
	}
	return Pending
}
