package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_conversation_dedup",
			SQL: `SELECT property_id, participant_key, COUNT(*) FROM conversations
                  WHERE team_id IS NULL AND participant_key IS NOT NULL
                  GROUP BY property_id, participant_key HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_deal_needs_property",
			SQL: `SELECT id FROM conversations
                  WHERE deal_status IS NOT NULL AND property_id IS NULL`,
		},
		{
			Name: "O3_confirmed_time_matches_status",
			SQL: `SELECT id, status FROM tours
                  WHERE (status = 'confirmed' AND confirmed_time IS NULL)
                     OR (status = 'pending' AND confirmed_time IS NOT NULL)`,
		},
		{
			Name: "O4_verified_implies_evidence",
			SQL: `SELECT p.id FROM properties p
                  WHERE p.verification_status = 'verified'
                    AND (p.verifier_id IS NULL
                         OR NOT EXISTS (SELECT 1 FROM verification_evidence e
                                        WHERE e.property_id = p.id))`,
		},
		{
			Name: "O5_notification_outbox_parity",
			SQL: `SELECT 'parity_mismatch'
                  WHERE (SELECT COUNT(*) FROM notifications)
                     <> (SELECT COUNT(*) FROM outbox WHERE topic LIKE 'notification.%')`,
		},
		{
			Name: "O6_outbox_attempts_capped",
			SQL:  `SELECT id FROM outbox WHERE status = 'pending' AND attempts >= 5`,
		},
		{
			Name: "O7_user_message_has_content",
			SQL: `SELECT id FROM messages
                  WHERE kind = 'user' AND body IS NULL AND audio_url IS NULL`,
		},
		{
			Name: "O8_system_join_once",
			SQL: `SELECT conversation_id, sender_id, body, COUNT(*) FROM messages
                  WHERE kind = 'system' AND body LIKE '%joined the conversation'
                  GROUP BY conversation_id, sender_id, body HAVING COUNT(*) > 1`,
		},
		{
			Name: "O9_likes_count_consistent",
			SQL: `SELECT p.id, p.likes_count, COUNT(l.user_id) FROM properties p
                  LEFT JOIN property_likes l ON l.property_id = p.id
                  GROUP BY p.id, p.likes_count
                  HAVING p.likes_count <> COUNT(l.user_id)`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row
// text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
