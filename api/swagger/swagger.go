package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Recruit Timeline API",
        "description": "Crowd-sourced recruitment step dates and representative timelines",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "StepReports", "description": "Crowd report intake and moderation"},
        {"name": "Timelines", "description": "Representative timelines and lead times"},
        {"name": "Steps", "description": "Official step dates"},
        {"name": "Ops", "description": "Operational counters"}
    ],
    "paths": {
        "/step-reports": {
            "post": {
                "tags": ["StepReports"],
                "summary": "Submit a step date report",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitStepReportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created or folded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Cooldown active", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timelines": {
            "get": {
                "tags": ["Timelines"],
                "summary": "Representative timeline per unit of a company",
                "parameters": [
                    {"name": "company", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timelines/lead-time": {
            "get": {
                "tags": ["Timelines"],
                "summary": "Lead time in days before a keyword step",
                "parameters": [
                    {"name": "company", "in": "query", "required": true, "type": "string"},
                    {"name": "keyword", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timelines/export": {
            "get": {
                "tags": ["Timelines"],
                "summary": "Download a company timeline",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "company", "in": "query", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/admin/step-reports": {
            "get": {
                "tags": ["StepReports"],
                "summary": "List step reports",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "description": "Comma separated PENDING,PROCESSED,DISCARDED"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/step-reports/process-pending": {
            "post": {
                "tags": ["StepReports"],
                "summary": "Enqueue promotion of every pending report that is not on hold",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/step-reports/{id}": {
            "get": {
                "tags": ["StepReports"],
                "summary": "Get a step report",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["StepReports"],
                "summary": "Rewrite a pending step report",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitStepReportRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not pending or duplicate", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/step-reports/{id}/process": {
            "post": {
                "tags": ["StepReports"],
                "summary": "Promote a pending report into the date log",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ProcessStepReportRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "On hold or not pending", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/step-reports/{id}/discard": {
            "post": {
                "tags": ["StepReports"],
                "summary": "Discard a pending report",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not pending", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/steps/{id}/official-dates": {
            "post": {
                "tags": ["Steps"],
                "summary": "Record an official step date",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordOfficialDateRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/metrics": {
            "get": {
                "tags": ["Ops"],
                "summary": "Intake and resolver counters",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SubmitStepReportRequest": {
            "type": "object",
            "properties": {
                "companyName": {"type": "string"},
                "unitCategory": {"type": "string"},
                "channelType": {"type": "string", "enum": ["ALWAYS", "YEARLY"]},
                "reportedDate": {"type": "string", "format": "date"},
                "stepId": {"type": "integer"},
                "stepName": {"type": "string"}
            },
            "required": ["companyName", "channelType", "reportedDate"]
        },
        "ProcessStepReportRequest": {
            "type": "object",
            "properties": {
                "stepId": {"type": "integer"}
            }
        },
        "RecordOfficialDateRequest": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "format": "date"}
            },
            "required": ["date"]
        },
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
