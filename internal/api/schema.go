package api

import (
	_ "embed"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed job_request.schema.json
var jobRequestSchema string

var jobSchema = mustSchema(jobRequestSchema)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile job request schema: %v", err))
	}
	return s
}

// checkSchema returns one message per schema violation, or nil.
func checkSchema(body []byte) ([]string, error) {
	res, err := jobSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, err
	}
	if res.Valid() {
		return nil, nil
	}
	problems := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		problems = append(problems, e.String())
	}
	return problems, nil
}
