package machine

const getInstallationSQL = `
SELECT install_uuid, created_at
FROM installation
WHERE installation_id = 1
`

const createInstallationSQL = `
INSERT INTO installation (installation_id, install_uuid, created_at)
VALUES (1, ?, ?)
`
