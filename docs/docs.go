// Package docs registers the Narsus OpenAPI document with swag.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/users/register": {
            "post": {
                "tags": ["users"], "summary": "Register a student or teacher account",
                "security": [],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/User"}}, "400": {"$ref": "#/responses/Error"}, "409": {"$ref": "#/responses/Error"}}
            }
        },
        "/users/login": {
            "post": {
                "tags": ["users"], "summary": "Exchange credentials for a bearer token",
                "security": [],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/LoginResponse"}}, "401": {"$ref": "#/responses/Error"}, "429": {"$ref": "#/responses/Error"}}
            }
        },
        "/users/me": {
            "get": {"tags": ["users"], "summary": "Current account", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/User"}}}}
        },
        "/courses": {
            "get": {"tags": ["courses"], "summary": "List courses", "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/Course"}}}}},
            "post": {
                "tags": ["courses"], "summary": "Create a course (teacher)",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/CourseCreate"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/Course"}}, "409": {"$ref": "#/responses/Error"}}
            }
        },
        "/courses/{id}": {
            "parameters": [{"$ref": "#/parameters/ID"}],
            "get": {"tags": ["courses"], "summary": "Get a course", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Course"}}, "404": {"$ref": "#/responses/Error"}}},
            "put": {"tags": ["courses"], "summary": "Update a course (teacher)", "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/CourseCreate"}}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Course"}}}},
            "delete": {"tags": ["courses"], "summary": "Delete a course and its associations (teacher)", "responses": {"204": {"description": "No Content"}}}
        },
        "/questions": {
            "get": {"tags": ["questions"], "summary": "List questions (teacher)", "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/Question"}}}}},
            "post": {
                "tags": ["questions"], "summary": "Create a question (teacher)",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/Question"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/Question"}}, "400": {"$ref": "#/responses/Error"}}
            }
        },
        "/questions/{id}": {
            "parameters": [{"$ref": "#/parameters/ID"}],
            "get": {"tags": ["questions"], "summary": "Get a question (teacher)", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Question"}}}},
            "put": {"tags": ["questions"], "summary": "Update a question (teacher)", "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/Question"}}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Question"}}}},
            "delete": {"tags": ["questions"], "summary": "Delete a question and its associations (teacher)", "responses": {"204": {"description": "No Content"}}}
        },
        "/question-course-associations": {
            "get": {
                "tags": ["associations"], "summary": "List associations (teacher)",
                "parameters": [{"in": "query", "name": "question_id", "type": "string"}, {"in": "query", "name": "course_id", "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/QCA"}}}}
            },
            "post": {
                "tags": ["associations"], "summary": "Link a question to a course (teacher)",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/QCA"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/QCA"}}, "409": {"$ref": "#/responses/Error"}}
            }
        },
        "/question-course-associations/{id}": {
            "parameters": [{"$ref": "#/parameters/ID"}],
            "get": {"tags": ["associations"], "summary": "Get an association (teacher)", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/QCA"}}}},
            "put": {"tags": ["associations"], "summary": "Change association type or feedback (teacher)", "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/QCA"}}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/QCA"}}}},
            "delete": {"tags": ["associations"], "summary": "Delete an association (teacher)", "responses": {"204": {"description": "No Content"}}}
        },
        "/surveys": {
            "get": {
                "tags": ["surveys"], "summary": "List surveys; students only see published ones",
                "parameters": [{"in": "query", "name": "published_only", "type": "boolean"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/Survey"}}}}
            },
            "post": {
                "tags": ["surveys"], "summary": "Create a draft survey (teacher)",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/Survey"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/Survey"}}, "400": {"$ref": "#/responses/Error"}}
            }
        },
        "/surveys/{id}": {
            "parameters": [{"$ref": "#/parameters/ID"}],
            "get": {
                "tags": ["surveys"], "summary": "Get a survey, optionally with its question details",
                "parameters": [{"in": "query", "name": "include_questions", "type": "boolean"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Survey"}}, "404": {"$ref": "#/responses/Error"}}
            },
            "put": {"tags": ["surveys"], "summary": "Update a survey (owner)", "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/Survey"}}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Survey"}}, "403": {"$ref": "#/responses/Error"}}},
            "delete": {"tags": ["surveys"], "summary": "Delete a survey without submitted attempts (owner)", "responses": {"204": {"description": "No Content"}, "409": {"$ref": "#/responses/Error"}}}
        },
        "/surveys/{id}/publish": {
            "parameters": [{"$ref": "#/parameters/ID"}],
            "post": {"tags": ["surveys"], "summary": "Publish a survey (owner)", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Survey"}}}}
        },
        "/surveys/{id}/unpublish": {
            "parameters": [{"$ref": "#/parameters/ID"}],
            "post": {"tags": ["surveys"], "summary": "Unpublish a survey (owner)", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Survey"}}}}
        },
        "/survey-attempts/start": {
            "post": {
                "tags": ["attempts"], "summary": "Start or resume an attempt on a published survey",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"type": "object", "properties": {"survey_id": {"type": "string"}}}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/SurveyAttempt"}}, "404": {"$ref": "#/responses/Error"}}
            }
        },
        "/survey-attempts/{id}/answers": {
            "parameters": [{"$ref": "#/parameters/ID"}],
            "post": {
                "tags": ["attempts"], "summary": "Save answers of an open attempt",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/SaveAnswersRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/StudentAnswer"}}}, "409": {"$ref": "#/responses/Error"}}
            }
        },
        "/survey-attempts/{id}/submit": {
            "parameters": [{"$ref": "#/parameters/ID"}],
            "post": {"tags": ["attempts"], "summary": "Score and submit an attempt", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/SurveyAttempt"}}, "409": {"$ref": "#/responses/Error"}}}
        },
        "/survey-attempts/{id}/results": {
            "parameters": [{"$ref": "#/parameters/ID"}],
            "get": {"tags": ["attempts"], "summary": "Results of a submitted attempt", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/SurveyAttempt"}}, "400": {"$ref": "#/responses/Error"}, "403": {"$ref": "#/responses/Error"}}}
        },
        "/survey-attempts/my": {
            "get": {
                "tags": ["attempts"], "summary": "The caller's attempts, newest first",
                "parameters": [{"$ref": "#/parameters/Skip"}, {"$ref": "#/parameters/Limit"}, {"$ref": "#/parameters/IncludeAnswers"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/SurveyAttempt"}}}}
            }
        },
        "/survey-attempts/by-survey/{survey_id}": {
            "get": {
                "tags": ["attempts"], "summary": "Submitted attempts of a survey (owner)",
                "parameters": [{"in": "path", "name": "survey_id", "required": true, "type": "string"}, {"$ref": "#/parameters/Skip"}, {"$ref": "#/parameters/Limit"}, {"$ref": "#/parameters/IncludeAnswers"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/SurveyAttempt"}}}}
            }
        }
    },
    "parameters": {
        "ID": {"in": "path", "name": "id", "required": true, "type": "string"},
        "Skip": {"in": "query", "name": "skip", "type": "integer"},
        "Limit": {"in": "query", "name": "limit", "type": "integer", "maximum": 100},
        "IncludeAnswers": {"in": "query", "name": "include_answers", "type": "boolean"}
    },
    "responses": {
        "Error": {"description": "Error", "schema": {"type": "object", "properties": {"error": {"type": "string"}}}}
    },
    "definitions": {
        "RegisterRequest": {"type": "object", "properties": {"username": {"type": "string"}, "password": {"type": "string"}, "display_name": {"type": "string"}, "role": {"type": "string", "enum": ["student", "teacher"]}}},
        "LoginRequest": {"type": "object", "properties": {"username": {"type": "string"}, "password": {"type": "string"}}},
        "LoginResponse": {"type": "object", "properties": {"access_token": {"type": "string"}, "token_type": {"type": "string"}, "user": {"$ref": "#/definitions/User"}}},
        "User": {"type": "object", "properties": {"id": {"type": "string"}, "username": {"type": "string"}, "display_name": {"type": "string"}, "role": {"type": "string"}}},
        "Course": {"type": "object", "properties": {"id": {"type": "string"}, "name": {"type": "string"}, "code": {"type": "string"}, "description": {"type": "string"}}},
        "CourseCreate": {"type": "object", "properties": {"name": {"type": "string"}, "code": {"type": "string"}, "description": {"type": "string"}}},
        "FeedbackRule": {"type": "object", "properties": {"score_value": {"type": "number"}, "comparison": {"type": "string", "enum": ["lt", "lte", "gt", "gte", "eq", "neq"]}, "feedback": {"type": "string"}}},
        "OutcomeRule": {"type": "object", "properties": {"score_value": {"type": "number"}, "comparison": {"type": "string"}, "outcome": {"type": "string", "enum": ["RECOMMENDED_TO_TAKE_COURSE", "ELIGIBLE_FOR_ERPL", "NOT_SUITABLE_FOR_COURSE", "UNDEFINED"]}}},
        "Question": {"type": "object", "properties": {
            "id": {"type": "string"}, "title": {"type": "string"}, "details": {"type": "string"},
            "answer_type": {"type": "string", "enum": ["multiple_choice", "multiple_select", "input", "range"]},
            "answer_options": {"type": "object"}, "scoring_rules": {"type": "object"},
            "default_feedbacks_on_score": {"type": "array", "items": {"$ref": "#/definitions/FeedbackRule"}}
        }},
        "QCA": {"type": "object", "properties": {
            "id": {"type": "string"}, "question_id": {"type": "string"}, "course_id": {"type": "string"},
            "answer_association_type": {"type": "string", "enum": ["positive", "negative"]},
            "feedbacks_based_on_score": {"type": "array", "items": {"$ref": "#/definitions/FeedbackRule"}}
        }},
        "Survey": {"type": "object", "properties": {
            "id": {"type": "string"}, "title": {"type": "string"}, "description": {"type": "string"},
            "course_ids": {"type": "array", "items": {"type": "string"}}, "is_published": {"type": "boolean"},
            "course_skill_total_score_thresholds": {"type": "object", "additionalProperties": {"type": "array", "items": {"$ref": "#/definitions/FeedbackRule"}}},
            "course_outcome_thresholds": {"type": "object", "additionalProperties": {"type": "array", "items": {"$ref": "#/definitions/OutcomeRule"}}},
            "overall_score_feedbacks": {"type": "array", "items": {"$ref": "#/definitions/FeedbackRule"}},
            "max_scores_per_course": {"type": "object", "additionalProperties": {"type": "number"}},
            "max_overall_survey_score": {"type": "number"}
        }},
        "SaveAnswersRequest": {"type": "object", "properties": {"answers": {"type": "array", "items": {"type": "object", "properties": {"qca_id": {"type": "string"}, "question_id": {"type": "string"}, "answer_value": {}}}}}},
        "StudentAnswer": {"type": "object", "properties": {"id": {"type": "string"}, "survey_attempt_id": {"type": "string"}, "qca_id": {"type": "string"}, "question_id": {"type": "string"}, "answer_value": {}, "score_achieved": {"type": "number"}, "is_unanswered": {"type": "boolean"}}},
        "SurveyAttempt": {"type": "object", "properties": {
            "id": {"type": "string"}, "student_id": {"type": "string"}, "survey_id": {"type": "string"},
            "started_at": {"type": "string", "format": "date-time"}, "submitted_at": {"type": "string", "format": "date-time"},
            "is_submitted": {"type": "boolean"},
            "course_scores": {"type": "object", "additionalProperties": {"type": "number"}},
            "course_feedback": {"type": "object", "additionalProperties": {"type": "string"}},
            "detailed_feedback": {"type": "object", "additionalProperties": {"type": "array", "items": {"type": "string"}}},
            "course_outcome_categorization": {"type": "object", "additionalProperties": {"type": "string"}},
            "overall_survey_feedback": {"type": "string"},
            "actual_overall_survey_score": {"type": "number"},
            "answers": {"type": "array", "items": {"$ref": "#/definitions/StudentAnswer"}}
        }}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Narsus API",
	Description:      "Survey scoring: courses, questions, surveys, and scored attempts.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
