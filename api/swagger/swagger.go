package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Skillbase Cohort API",
        "description": "Cohort-scoped training delivery, compliance tracking, and IQA sampling",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Cohorts", "description": "Cohort lifecycle and instructor assignments"},
        {"name": "Learners", "description": "Cohort roster management"},
        {"name": "Sessions", "description": "Scheduled lesson deliveries"},
        {"name": "Attendance", "description": "Attendance marking and rates"},
        {"name": "Signoffs", "description": "Assessment sign-off matrix"},
        {"name": "IQA", "description": "Internal quality assurance sampling"},
        {"name": "Reports", "description": "Compliance register exports"},
        {"name": "Audit", "description": "Admin audit trail"}
    ],
    "paths": {
        "/cohorts": {
            "get": {
                "tags": ["Cohorts"],
                "summary": "List cohorts visible to the caller",
                "parameters": [
                    {"name": "courseId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Cohorts"],
                "summary": "Create cohort (admin)",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cohorts/{id}": {
            "get": {
                "tags": ["Cohorts"],
                "summary": "Get cohort detail",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Cohorts"],
                "summary": "Update cohort",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Cohorts"],
                "summary": "Delete cohort (admin, blocked while learners remain)",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "No Content"},
                    "412": {"description": "Cohort still has learner records"}
                }
            }
        },
        "/cohorts/{id}/instructors": {
            "get": {
                "tags": ["Cohorts"],
                "summary": "List instructor assignments",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Cohorts"],
                "summary": "Assign instructor (admin)",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cohorts/{id}/learners": {
            "get": {
                "tags": ["Learners"],
                "summary": "List cohort learners",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Learners"],
                "summary": "Enroll learner",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Email already enrolled in cohort"}
                }
            }
        },
        "/cohorts/{id}/sessions": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List sessions",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Sessions"],
                "summary": "Schedule session",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Lesson already scheduled on that day"}
                }
            }
        },
        "/cohorts/{id}/attendance": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List attendance with stats and per-learner rates",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "sessionId", "in": "query", "type": "string"},
                    {"name": "learnerId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Attendance"],
                "summary": "Mark attendance for one learner",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/cohorts/{id}/attendance/bulk": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Mark a whole session register atomically",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "422": {"description": "Batch rejected, learners outside cohort"}
                }
            }
        },
        "/cohorts/{id}/signoffs": {
            "get": {
                "tags": ["Signoffs"],
                "summary": "List sign-offs with stats and the by-learner matrix",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Signoffs"],
                "summary": "Create or replace a sign-off record",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/cohorts/{id}/signoffs/bulk": {
            "post": {
                "tags": ["Signoffs"],
                "summary": "Apply a batch of sign-offs atomically",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "422": {"description": "Batch rejected, learners outside cohort"}
                }
            }
        },
        "/cohorts/{id}/iqa-samples": {
            "get": {
                "tags": ["IQA"],
                "summary": "List IQA samples",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["IQA"],
                "summary": "Plan an IQA sample",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/cohorts/{id}/reports/attendance-register": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export attendance register as CSV or PDF",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/cohorts/{id}/reports/signoff-register": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export sign-off register as CSV or PDF",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/audit-logs": {
            "get": {
                "tags": ["Audit"],
                "summary": "List audit log entries (admin)",
                "parameters": [
                    {"name": "actorId", "in": "query", "type": "string"},
                    {"name": "action", "in": "query", "type": "string"},
                    {"name": "entityType", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
