package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Bulk Loan API",
        "description": "Bulk lending of numbered items with partial return reconciliation",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Loans", "description": "Borrow transactions and return rounds"},
        {"name": "Images", "description": "Evidence image downloads"},
        {"name": "Observability", "description": "Probes and counters"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Observability"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Observability"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unavailable"}
                }
            }
        },
        "/api/v1/loans/preview": {
            "post": {
                "tags": ["Loans"],
                "summary": "Derive the identifiers a borrow declaration covers",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PreviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid range", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/loans": {
            "get": {
                "tags": ["Loans"],
                "summary": "List loan records, newest first",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["borrowed", "partially_returned", "returned", "active"]},
                    {"name": "district", "in": "query", "type": "string"},
                    {"name": "organizationType", "in": "query", "type": "string", "enum": ["FOUNDATION", "ASSOCIATION"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Loans"],
                "summary": "Record a bulk borrow transaction",
                "description": "Accepts JSON, or multipart form fields plus optional images files.",
                "consumes": ["application/json", "multipart/form-data"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateLoanRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Image upload failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/loans/summary": {
            "get": {
                "tags": ["Loans"],
                "summary": "Dashboard totals across all loans",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/loans/export": {
            "get": {
                "tags": ["Loans"],
                "summary": "Export loan records as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "district", "in": "query", "type": "string"},
                    {"name": "organizationType", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "400": {"description": "Invalid query", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/loans/{id}": {
            "get": {
                "tags": ["Loans"],
                "summary": "Get a loan record with its outstanding identifiers",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Loans"],
                "summary": "Delete a loan record",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/loans/{id}/returns": {
            "post": {
                "tags": ["Loans"],
                "summary": "Record a return round",
                "description": "JSON body, or multipart with books (repeated or comma separated), date and images.",
                "consumes": ["application/json", "multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordReturnRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Empty selection or unknown identifier", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already returned or record closed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Image upload failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/loans/{id}/images": {
            "post": {
                "tags": ["Loans"],
                "summary": "Append borrow evidence images",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "images", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/loans/{id}/returns/{eventId}/images": {
            "post": {
                "tags": ["Loans"],
                "summary": "Append evidence images to one return event",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "eventId", "in": "path", "required": true, "type": "string"},
                    {"name": "images", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/images/download": {
            "get": {
                "tags": ["Images"],
                "summary": "Download an evidence image",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/metrics/snapshot": {
            "get": {
                "tags": ["Observability"],
                "summary": "Process counters as JSON",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "PreviewRequest": {
            "type": "object",
            "required": ["startNumber", "endNumber"],
            "properties": {
                "startNumber": {"type": "integer"},
                "endNumber": {"type": "integer"},
                "missingNumbers": {"type": "string", "example": "3, 7"},
                "duplicateNumbers": {"type": "string", "example": "5.1"}
            }
        },
        "CreateLoanRequest": {
            "type": "object",
            "required": ["organizationType", "district", "startNumber", "endNumber"],
            "properties": {
                "date": {"type": "string", "example": "2024-03-01"},
                "organizationType": {"type": "string", "enum": ["FOUNDATION", "ASSOCIATION"]},
                "district": {"type": "string"},
                "startNumber": {"type": "integer"},
                "endNumber": {"type": "integer"},
                "missingNumbers": {"type": "string"},
                "duplicateNumbers": {"type": "string"}
            }
        },
        "RecordReturnRequest": {
            "type": "object",
            "required": ["books"],
            "properties": {
                "books": {"type": "array", "items": {"type": "string"}},
                "date": {"type": "string", "example": "2024-03-15"}
            }
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
