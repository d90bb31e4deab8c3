package license

const getLicenseSQL = `
SELECT product_id, license_key, machine_code, payload, signature, sign_date, expires, activated_at
FROM license_key
WHERE product_id = ? AND license_key = ?
`

const listLicensesSQL = `
SELECT product_id, license_key, machine_code, payload, signature, sign_date, expires, activated_at
FROM license_key
ORDER BY product_id, license_key
`

const upsertLicenseSQL = `
INSERT INTO license_key (product_id, license_key, machine_code, payload, signature, sign_date, expires, activated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (product_id, license_key) DO UPDATE SET
	machine_code = excluded.machine_code,
	payload = excluded.payload,
	signature = excluded.signature,
	sign_date = excluded.sign_date,
	expires = excluded.expires,
	activated_at = excluded.activated_at
`

const deleteLicenseSQL = `
DELETE FROM license_key
WHERE product_id = ? AND license_key = ?
`
