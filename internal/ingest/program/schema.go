package program

// programSchema is the JSON Schema every imported program document must
// satisfy before it is decoded.
const programSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["program_name", "duration_weeks", "exercise_library", "weekly_targets"],
  "properties": {
    "program_name": {"type": "string", "minLength": 1},
    "duration_weeks": {"type": "integer", "minimum": 1},
    "goal_priority": {"type": "array", "items": {"type": "string"}},
    "session_structure": {
      "type": "object",
      "properties": {
        "warmup_minutes": {"type": "integer", "minimum": 0},
        "main_minutes": {"type": "integer", "minimum": 0},
        "cooldown_minutes": {"type": "integer", "minimum": 0}
      }
    },
    "exercise_library": {
      "type": "object",
      "additionalProperties": {"$ref": "#/definitions/exercise"}
    },
    "weekly_targets": {
      "type": "array",
      "items": {"$ref": "#/definitions/week"}
    }
  },
  "definitions": {
    "exercise": {
      "type": "object",
      "required": ["type", "rest_s"],
      "properties": {
        "type": {"enum": ["hold_seconds", "reps", "hold_seconds_each_side", "reps_each_side"]},
        "rest_s": {"type": "integer", "minimum": 0},
        "time_limit_s": {"type": "integer", "minimum": 1},
        "description": {"type": "string"},
        "gif_url": {"type": "string"}
      }
    },
    "item": {
      "type": "object",
      "required": ["name", "sets"],
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "sets": {"type": "integer", "minimum": 1},
        "reps": {"type": "integer"},
        "hold_seconds": {"type": "integer"},
        "reps_each_side": {"type": "integer"},
        "hold_seconds_each_side": {"type": "integer"},
        "weight_kg": {"type": "number"},
        "distance_m": {"type": "number"}
      }
    },
    "week": {
      "type": "object",
      "required": ["week"],
      "properties": {
        "week": {"type": "integer", "minimum": 1},
        "day_prescription": {
          "type": "object",
          "additionalProperties": {"type": "array", "items": {"$ref": "#/definitions/item"}}
        },
        "delta_from_previous_week": {
          "type": "object",
          "additionalProperties": {"type": ["string", "integer"]}
        }
      }
    }
  }
}`
