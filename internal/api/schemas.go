package api

import "creator-match/internal/common/validation"

const businessFieldsSchema = `{
	"type": "object",
	"properties": {
		"website":   {"type": "string", "maxLength": 512},
		"instagram": {"type": "string", "maxLength": 512},
		"youtube":   {"type": "string", "maxLength": 512},
		"tiktok":    {"type": "string", "maxLength": 512}
	},
	"minProperties": 1,
	"additionalProperties": false
}`

const creatorFieldsSchema = `{
	"type": "object",
	"properties": {
		"instagram": {"type": "string", "maxLength": 512},
		"youtube":   {"type": "string", "maxLength": 512},
		"tiktok":    {"type": "string", "maxLength": 512}
	},
	"minProperties": 1,
	"additionalProperties": false
}`

// The address format itself is checked by the wizard so that a bad address
// raises the same notification as in the terminal front end.
const emailSchema = `{
	"type": "object",
	"properties": {
		"email": {"type": "string", "maxLength": 320}
	},
	"required": ["email"],
	"additionalProperties": false
}`

var (
	businessFields = validation.MustCompile("business-fields", businessFieldsSchema)
	creatorFields  = validation.MustCompile("creator-fields", creatorFieldsSchema)
	emailRequest   = validation.MustCompile("email-request", emailSchema)
)
