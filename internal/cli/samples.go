package cli

import "sulla-quiz-service/internal/domain"

// sampleQuizzes backs local runs with no content source configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"blockchain-basics": {
			ID:            "blockchain-basics",
			Title:         "Blockchain Basics",
			ModuleID:      "blockchain",
			SectionID:     "basics",
			SectionName:   "What is a blockchain?",
			PassThreshold: domain.PassAt(60),
			Questions: []domain.Question{
				{
					ID:           "q1",
					Prompt:       "What links each block to the one before it?",
					Options:      []string{"A timestamp", "The previous block's hash", "The miner's address", "A block number"},
					CorrectIndex: 1,
					Explanation:  "Every block header commits to the hash of its parent, so changing history breaks the chain.",
				},
				{
					ID:           "q2",
					Prompt:       "Who keeps a copy of the Bitcoin ledger?",
					Options:      []string{"Only miners", "A central bank", "Every full node"},
					CorrectIndex: 2,
					Explanation:  "Full nodes store and verify the whole chain independently.",
				},
				{
					ID:           "q3",
					Prompt:       "What does proof of work make expensive?",
					Options:      []string{"Rewriting past blocks", "Sending small payments", "Creating a wallet"},
					CorrectIndex: 0,
					Explanation:  "Redoing the work for old blocks costs more than the honest chain keeps adding.",
				},
			},
		},
		"wallet-safety": {
			ID:            "wallet-safety",
			Title:         "Wallet Safety",
			ModuleID:      "wallets",
			SectionID:     "safety",
			SectionName:   "Keeping keys safe",
			PassThreshold: domain.PassAt(70),
			Questions: []domain.Question{
				{
					ID:           "q1",
					Prompt:       "What does a seed phrase let someone do?",
					Options:      []string{"Restore all of your keys", "Reset your exchange password", "Speed up transactions"},
					CorrectIndex: 0,
					Explanation:  "Whoever holds the seed phrase controls the funds.",
				},
				{
					ID:           "q2",
					Prompt:       "Support asks for your seed phrase to fix an issue. What do you do?",
					Options:      []string{"Send it over chat", "Read it out on a call", "Refuse, it's a scam"},
					CorrectIndex: 2,
					Explanation:  "No legitimate service ever needs your seed phrase.",
				},
			},
		},
	}
}
