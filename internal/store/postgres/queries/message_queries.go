package queries

const messageColumns = `id, sender_id, target_kind, target_id, text, attachment, status, read_by, created_at`

const (
	QueryCreateMessage = `
		INSERT INTO messages (id, sender_id, target_kind, target_id, text, attachment, status, read_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	QueryGetMessagesByIDs = `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE id = ANY($1::text[])
		ORDER BY created_at, seq;
	`
	// повторное прочтение не дублирует читателя
	QueryAddReader = `
		UPDATE messages
		SET read_by = CASE WHEN $1 = ANY(read_by) THEN read_by ELSE array_append(read_by, $1) END,
			status = 'read'
		WHERE id = ANY($2::text[]);
	`

	// страница берётся с конца и разворачивается в хронологический порядок
	QueryListGroupMessages = `
		SELECT ` + messageColumns + `
		FROM (
			SELECT ` + messageColumns + `, seq
			FROM messages
			WHERE target_kind = 'group' AND target_id = $1
				AND ($2::timestamptz IS NULL OR created_at < $2)
			ORDER BY created_at DESC, seq DESC
			LIMIT NULLIF($3::int, 0)
		) page
		ORDER BY created_at, seq;
	`
	QueryListDirectMessages = `
		SELECT ` + messageColumns + `
		FROM (
			SELECT ` + messageColumns + `, seq
			FROM messages
			WHERE target_kind = 'direct'
				AND ((sender_id = $1 AND target_id = $2) OR (sender_id = $2 AND target_id = $1))
				AND ($3::timestamptz IS NULL OR created_at < $3)
			ORDER BY created_at DESC, seq DESC
			LIMIT NULLIF($4::int, 0)
		) page
		ORDER BY created_at, seq;
	`

	QueryCountUnreadGroup = `
		SELECT count(*)
		FROM messages
		WHERE target_kind = 'group' AND target_id = $2 AND NOT ($1 = ANY(read_by));
	`
	QueryCountUnreadDirect = `
		SELECT count(*)
		FROM messages
		WHERE target_kind = 'direct' AND sender_id = $2 AND target_id = $1 AND NOT ($1 = ANY(read_by));
	`
	// группы без сообщений в ответ не попадают
	QueryCountUnreadByGroup = `
		SELECT target_id, count(*) FILTER (WHERE NOT ($1 = ANY(read_by)))
		FROM messages
		WHERE target_kind = 'group' AND target_id = ANY($2::text[])
		GROUP BY target_id
		ORDER BY target_id;
	`
	QueryCountUnreadDirectBySender = `
		SELECT sender_id, count(*)
		FROM messages
		WHERE target_kind = 'direct' AND target_id = $1 AND NOT ($1 = ANY(read_by))
		GROUP BY sender_id
		ORDER BY sender_id;
	`
	QueryDirectPartners = `
		SELECT
			CASE WHEN sender_id = $1 THEN target_id ELSE sender_id END AS partner,
			max(created_at) AS last_message_at,
			count(*) AS message_count
		FROM messages
		WHERE target_kind = 'direct' AND (sender_id = $1 OR target_id = $1)
		GROUP BY partner
		ORDER BY last_message_at DESC, partner
		LIMIT NULLIF($2::int, 0);
	`
)
