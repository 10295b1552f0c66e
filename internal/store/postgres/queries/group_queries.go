package queries

// участники и админы собираются одним запросом, порядок: порядок вступления
const groupSelect = `
	SELECT
		g.id, g.name, g.created_by, g.last_message_id, g.created_at, g.updated_at,
		COALESCE(array_agg(m.user_id ORDER BY m.pos) FILTER (WHERE m.user_id IS NOT NULL), '{}') AS members,
		COALESCE(array_agg(m.user_id ORDER BY m.pos) FILTER (WHERE m.is_admin), '{}') AS admins
	FROM chat_groups g
	LEFT JOIN group_members m ON m.group_id = g.id
`

const (
	// группа и её участники вставляются одним выражением
	QueryCreateGroup = `
		WITH g AS (
			INSERT INTO chat_groups (id, name, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
			RETURNING id
		)
		INSERT INTO group_members (group_id, user_id, is_admin, joined_at)
		SELECT g.id, m.user_id, m.user_id = ANY($6::text[]), $4
		FROM g, unnest($5::text[]) WITH ORDINALITY AS m(user_id, ord)
		ORDER BY m.ord;
	`
	QueryGetGroup = groupSelect + `
		WHERE g.id = $1
		GROUP BY g.id;
	`
	QueryListGroupsForUser = groupSelect + `
		WHERE g.id IN (SELECT group_id FROM group_members WHERE user_id = $1)
		GROUP BY g.id
		ORDER BY g.created_at, g.id;
	`
	QueryGroupIDsForUser = `
		SELECT gm.group_id
		FROM group_members gm
		JOIN chat_groups g ON g.id = gm.group_id
		WHERE gm.user_id = $1
		ORDER BY g.created_at, g.id;
	`
	QueryGroupExists = `SELECT 1 FROM chat_groups WHERE id = $1;`

	QueryAddMember = `
		WITH ins AS (
			INSERT INTO group_members (group_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT (group_id, user_id) DO NOTHING
			RETURNING group_id
		)
		UPDATE chat_groups SET updated_at = now()
		WHERE id IN (SELECT group_id FROM ins);
	`
	QueryRemoveMember = `
		WITH del AS (
			DELETE FROM group_members
			WHERE group_id = $1 AND user_id = $2
			RETURNING group_id
		)
		UPDATE chat_groups SET updated_at = now()
		WHERE id IN (SELECT group_id FROM del);
	`
	QueryAddAdmin = `
		WITH upd AS (
			UPDATE group_members SET is_admin = TRUE
			WHERE group_id = $1 AND user_id = $2 AND NOT is_admin
			RETURNING group_id
		)
		UPDATE chat_groups SET updated_at = now()
		WHERE id IN (SELECT group_id FROM upd);
	`
	QueryRenameGroup = `
		UPDATE chat_groups
		SET name = $2, updated_at = now()
		WHERE id = $1;
	`
	QuerySetLastMessage = `
		UPDATE chat_groups
		SET last_message_id = $2, updated_at = now()
		WHERE id = $1;
	`
)
