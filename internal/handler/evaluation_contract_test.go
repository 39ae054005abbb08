package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"
)

const evaluationSubmitSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["success", "message", "data"],
  "properties": {
    "success": {"type": "boolean", "const": true},
    "message": {"type": "string"},
    "data": {
      "type": "object",
      "required": [
        "id", "form_id", "team_id", "evaluator", "evaluator_id_hidden",
        "evaluatee", "total_score", "score_percentage", "late_submission",
        "submitted_at", "scores"
      ],
      "properties": {
        "id": {"type": "integer", "minimum": 1},
        "form_id": {"type": "integer", "minimum": 1},
        "team_id": {"type": "integer", "minimum": 1},
        "evaluator": {
          "type": "object",
          "required": ["id", "name", "email"],
          "properties": {
            "id": {"type": "string"},
            "name": {"type": "string"},
            "email": {"type": "string"}
          }
        },
        "evaluator_id_hidden": {"type": "boolean"},
        "evaluatee": {
          "type": "object",
          "required": ["id", "name"],
          "properties": {
            "id": {"type": "integer"},
            "name": {"type": "string"}
          }
        },
        "total_score": {"type": "number", "minimum": 0},
        "weighted_score": {"type": ["number", "null"]},
        "score_percentage": {"type": "number", "minimum": 0, "maximum": 100},
        "comments": {"type": "string"},
        "late_submission": {"type": "boolean"},
        "submitted_at": {"type": "string", "format": "date-time"},
        "scores": {
          "type": "array",
          "minItems": 1,
          "items": {
            "type": "object",
            "required": ["criterion_id", "score"],
            "properties": {
              "criterion_id": {"type": "integer", "minimum": 1},
              "score": {"type": "integer", "minimum": 0}
            }
          }
        },
        "weighted_breakdown": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["criterion_id", "raw_score", "max_points", "weight", "weighted_score"],
            "properties": {
              "criterion_id": {"type": "integer"},
              "raw_score": {"type": "integer"},
              "max_points": {"type": "integer"},
              "weight": {"type": "number"},
              "weighted_score": {"type": "number"}
            }
          }
        }
      }
    }
  }
}`

func TestSubmitEvaluationResponseContract(t *testing.T) {
	app, db, _ := setupApp(t)
	form := seedTeamWithForm(t, db)

	compiler := jsonschema.NewCompiler()
	require.NoError(t, compiler.AddResource("evaluation_submit.schema.json", strings.NewReader(evaluationSubmitSchema)))
	schema, err := compiler.Compile("evaluation_submit.schema.json")
	require.NoError(t, err)

	resp := performJSON(t, app, http.MethodPost, "/api/v1/evaluations", submitPayload(form, 2))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}
