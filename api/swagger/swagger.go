package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Dropout Copilot API",
        "description": "Counselling guidance and dropout-risk tracking service",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Counselling", "description": "Guidance, chat and session booking"},
        {"name": "Students", "description": "Roster and academic records"},
        {"name": "Predictions", "description": "ML scoring and risk aggregates"},
        {"name": "Alerts", "description": "Faculty alerts"},
        {"name": "Exports", "description": "Roster and report exports"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/counselling/ai": {
            "post": {
                "tags": ["Counselling"],
                "summary": "Generate counselling guidance",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GuidanceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/counselling/chat": {
            "post": {
                "tags": ["Counselling"],
                "summary": "Answer a counselling question",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChatRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/counselling/chat/stream": {
            "post": {
                "tags": ["Counselling"],
                "summary": "Stream a counselling answer as NDJSON",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChatRequest"}}
                ],
                "produces": ["application/x-ndjson"],
                "responses": {
                    "200": {"description": "NDJSON event stream"}
                }
            }
        },
        "/counselling": {
            "get": {
                "tags": ["Counselling"],
                "summary": "List counselling requests",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Counselling"],
                "summary": "Book a counselling session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookCounsellingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate pending request"}
                }
            }
        },
        "/counselling/{id}": {
            "patch": {
                "tags": ["Counselling"],
                "summary": "Update counselling request status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateCounsellingStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Counselling"],
                "summary": "Delete counselling request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students with latest predictions",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Register a student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student snapshot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Delete student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/students/{id}/academic": {
            "put": {
                "tags": ["Students"],
                "summary": "Update academic record",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AcademicUpdate"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/risk/history": {
            "get": {
                "tags": ["Predictions"],
                "summary": "Weekly average risk aggregate",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/predict/{student_id}": {
            "post": {
                "tags": ["Predictions"],
                "summary": "Score a student through the ML service",
                "parameters": [
                    {"name": "student_id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Prediction service unavailable"}
                }
            }
        },
        "/prediction/save": {
            "post": {
                "tags": ["Predictions"],
                "summary": "Persist an externally computed prediction",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SavePredictionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/alerts": {
            "get": {
                "tags": ["Alerts"],
                "summary": "List alerts",
                "parameters": [
                    {"name": "student_id", "in": "query", "type": "integer"},
                    {"name": "register_number", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Alerts"],
                "summary": "Raise a faculty alert",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAlertRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports": {
            "get": {
                "tags": ["Exports"],
                "summary": "List export jobs",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Exports"],
                "summary": "Queue an export",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{id}/download": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a completed export",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        }
    },
    "definitions": {
        "GuidanceRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "integer"},
                "force_refresh": {"type": "boolean"}
            },
            "required": ["student_id"]
        },
        "ChatRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "integer"},
                "question": {"type": "string"},
                "history": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/ChatMessage"}
                }
            },
            "required": ["student_id", "question"]
        },
        "ChatMessage": {
            "type": "object",
            "properties": {
                "role": {"type": "string", "enum": ["user", "assistant"]},
                "content": {"type": "string"}
            },
            "required": ["role", "content"]
        },
        "BookCounsellingRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "integer"},
                "reason": {"type": "string"}
            },
            "required": ["student_id", "reason"]
        },
        "UpdateCounsellingStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["PENDING", "COMPLETED", "CANCELLED"]}
            },
            "required": ["status"]
        },
        "CreateStudentRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "register_number": {"type": "string"},
                "year": {"type": "integer"},
                "semester": {"type": "integer"},
                "faculty_id": {"type": "string"}
            },
            "required": ["name", "register_number", "year", "semester"]
        },
        "AcademicUpdate": {
            "type": "object",
            "properties": {
                "attendance": {"type": "number"},
                "cgpa": {"type": "number"},
                "arrear_count": {"type": "integer"},
                "fees_paid": {"type": "boolean"}
            }
        },
        "SavePredictionRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "integer"},
                "risk_score": {"type": "number"},
                "risk_level": {"type": "string"},
                "dropout_prediction": {"type": "integer"}
            },
            "required": ["student_id", "risk_level"]
        },
        "CreateAlertRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "integer"},
                "register_number": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "CreateExportRequest": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["roster_csv", "risk_report_pdf"]},
                "student_id": {"type": "integer"}
            },
            "required": ["kind"]
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
