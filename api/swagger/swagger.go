package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Bauform API",
        "description": "Multi-step construction-project form service with attachments and PDF export",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Identity and sessions"},
        {"name": "Forms", "description": "Form lifecycle: load, save, submit, attachments"},
        {"name": "Reports", "description": "PDF summaries"}
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
        "/report": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download the PDF summary of a form",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "query", "type": "string", "required": true, "description": "Form ID"}
                ],
                "responses": {
                    "200": {"description": "PDF attachment"},
                    "400": {"description": "Missing id", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Form not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate a user",
                "responses": {
                    "200": {"description": "Token pair", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange a refresh token",
                "responses": {
                    "200": {"description": "Token pair", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/forms": {
            "get": {
                "tags": ["Forms"],
                "summary": "List the caller's forms",
                "responses": {
                    "200": {"description": "Form overview", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/forms/{id}": {
            "get": {
                "tags": ["Forms"],
                "summary": "Load one form (id may be the literal new)",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Form with previews", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Forms"],
                "summary": "Checkpoint-save a form (multipart, one file part per slot)",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Saved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Form already submitted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/forms/{id}/submit": {
            "post": {
                "tags": ["Forms"],
                "summary": "Submit a form (irreversible)",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Submitted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Form already submitted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/forms/{id}/files/{slot}/download": {
            "get": {
                "tags": ["Forms"],
                "summary": "Resolve a short-lived download URL for an attachment slot",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "slot", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Signed URL", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No file stored for slot", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
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
                "error": {"$ref": "#/definitions/APIError"}
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
