package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "OBE Attainment API",
        "description": "Course outcome attainment calculation service",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Attainment", "description": "Attainment pipeline and reports"}
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
        "/courses/{id}/attainment/run": {
            "post": {
                "tags": ["Attainment"],
                "summary": "Run the attainment pipeline for a course",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "async", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Run already in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "No usable question schema", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{id}/attainment": {
            "get": {
                "tags": ["Attainment"],
                "summary": "Course-wide CO attainment report",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{id}/attainment/final": {
            "get": {
                "tags": ["Attainment"],
                "summary": "Final continuous-assessment composition per student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/courses/{id}/attainment/export": {
            "get": {
                "tags": ["Attainment"],
                "summary": "Export attainment results as CSV or PDF",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "report", "in": "query", "type": "string", "enum": ["combined", "final"]}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/assessments/{id}/analysis": {
            "get": {
                "tags": ["Attainment"],
                "summary": "Vertical, horizontal and summary analysis of one assessment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/diagnostics": {
            "get": {
                "tags": ["Attainment"],
                "summary": "Runtime metrics snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CombinedAttainment": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "course_id": {"type": "string"},
                "co_id": {"type": "string"},
                "co_number": {"type": "integer"},
                "total_max_marks": {"type": "number"},
                "total_attempts": {"type": "integer"},
                "students_above_threshold": {"type": "integer"},
                "attainment_percent": {"type": "number"},
                "calculated_at": {"type": "string"}
            }
        },
        "FinalComposition": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "course_id": {"type": "string"},
                "student_id": {"type": "string"},
                "scaled_cie1": {"type": "number"},
                "scaled_cie2": {"type": "number"},
                "scaled_cie3": {"type": "number"},
                "avg_cie_scaled": {"type": "number"},
                "aat_marks": {"type": "number"},
                "quiz_marks": {"type": "number"},
                "final_cie_total": {"type": "number"},
                "final_cie_percentage": {"type": "number"},
                "final_cie_max": {"type": "number"},
                "calculated_at": {"type": "string"}
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
