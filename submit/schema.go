package submit

import (
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const responseSchemaJSON = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": {
		"success": {"type": "boolean"},
		"error": {"type": ["string", "null"]}
	},
	"required": ["success"]
}`

func responseSchema() (*jsonschema.Schema, error) {
	s, err := jsonschema.CompileString("delivery-response.json", responseSchemaJSON)
	if err != nil {
		return nil, errors.Wrap(err, "can't compile response schema")
	}
	return s, nil
}

// tokenExpired reports whether a JWT bearer token carries an exp claim in
// the past. The signature is not checked; the backend does that.
func tokenExpired(token string, now time.Time) (bool, error) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return false, err
	}
	return !claims.VerifyExpiresAt(now.Unix(), false), nil
}
