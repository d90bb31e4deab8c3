package machine

// Installation is the single row identifying this agent's database.
type Installation struct {
	InstallUUID string `db:"install_uuid"`
	CreatedAt   int64  `db:"created_at"`
}
