package queries

const userColumns = `id, username, name, avatar_url, status, hide_presence`

const (
	QueryUpsertUser = `
		INSERT INTO users (id, username, name, avatar_url, status, hide_presence)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username,
			name = EXCLUDED.name,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = now();
	`
	QueryGetUserByID = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1;
	`
	QueryGetUserByUsername = `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1;
	`
	QueryGetUsersByIDs = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = ANY($1::text[])
		ORDER BY username, id;
	`
	QueryListUsers = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY username, id
		LIMIT NULLIF($1::int, 0);
	`
	// $1: ILIKE-шаблон, $2: исключаемые id
	QuerySearchUsers = `
		SELECT ` + userColumns + `
		FROM users
		WHERE (username ILIKE $1 OR name ILIKE $1)
			AND NOT (id = ANY($2::text[]))
		ORDER BY username, id
		LIMIT NULLIF($3::int, 0);
	`
	QuerySetUserStatus = `
		UPDATE users
		SET status = $2, updated_at = now()
		WHERE id = $1;
	`
	QuerySetHidePresence = `
		UPDATE users
		SET hide_presence = $2, updated_at = now()
		WHERE id = $1;
	`
	QueryListVisiblePresence = `
		SELECT id, status
		FROM users
		WHERE status <> 'offline' AND NOT hide_presence
		ORDER BY id;
	`
	QueryResetStatuses = `UPDATE users SET status = 'offline', updated_at = now() WHERE status <> 'offline';`
)
