// Package docs holds the OpenAPI document served under /swagger. Regenerate
// with `swag init -g cmd/api/main.go` after changing handler annotations.
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
    "paths": {
        "/datasets": {
            "get": {
                "produces": ["application/json"],
                "tags": ["datasets"],
                "summary": "List datasets",
                "parameters": [
                    {"type": "integer", "description": "max items (default 50)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/httptransport.datasetResp"}}}
                }
            },
            "post": {
                "description": "Stores a .csv or .xlsx file and records it as a dataset.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["datasets"],
                "summary": "Upload a dataset",
                "parameters": [
                    {"type": "file", "description": "dataset file (.csv or .xlsx)", "name": "file", "in": "formData", "required": true},
                    {"type": "string", "description": "display name (defaults to the file name)", "name": "name", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/httptransport.datasetResp"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/httptransport.apiError"}}
                }
            }
        },
        "/datasets/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["datasets"],
                "summary": "Get dataset by id",
                "parameters": [
                    {"type": "string", "description": "dataset id (uuid)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.datasetResp"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.apiError"}}
                }
            }
        },
        "/jobs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "List jobs, newest first",
                "parameters": [
                    {"type": "integer", "description": "max items (default 50)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/httptransport.jobResp"}}}
                }
            },
            "post": {
                "description": "Creates a PENDING job for the dataset and dispatches it for background processing.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Start a cleaning job",
                "parameters": [
                    {"description": "dataset to clean", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httptransport.createJobDTO"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/httptransport.jobResp"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/httptransport.apiError"}}
                }
            }
        },
        "/jobs/{id}": {
            "get": {
                "description": "Status, ordered log and, once completed, the report.",
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Get job by id",
                "parameters": [
                    {"type": "string", "description": "job id (uuid)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.jobResp"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.apiError"}}
                }
            }
        },
        "/jobs/{id}/report": {
            "get": {
                "produces": ["application/json"],
                "tags": ["jobs"],
                "summary": "Get the quality report of a completed job",
                "parameters": [
                    {"type": "string", "description": "job id (uuid)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.reportResp"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httptransport.apiError"}}
                }
            }
        },
        "/jobs/{id}/cleaned": {
            "get": {
                "produces": ["application/octet-stream"],
                "tags": ["jobs"],
                "summary": "Download the cleaned dataset of a completed job",
                "parameters": [
                    {"type": "string", "description": "job id (uuid)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httptransport.apiError"}}
                }
            }
        }
    },
    "definitions": {
        "httptransport.apiError": {
            "type": "object",
            "properties": {"message": {"type": "string"}}
        },
        "httptransport.createJobDTO": {
            "type": "object",
            "properties": {"dataset_id": {"type": "string"}}
        },
        "httptransport.datasetResp": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "file_path": {"type": "string"},
                "uploaded_at": {"type": "string"}
            }
        },
        "httptransport.logResp": {
            "type": "object",
            "properties": {
                "seq": {"type": "integer"},
                "message": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "httptransport.reportResp": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "job_id": {"type": "string"},
                "initial_quality_score": {"type": "integer"},
                "final_quality_score": {"type": "integer"},
                "issues_found": {"type": "object"},
                "actions_taken": {"type": "array", "items": {"type": "string"}},
                "cleaned_file_path": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "httptransport.jobResp": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "dataset_id": {"type": "string"},
                "status": {"type": "string", "enum": ["PENDING", "RUNNING", "COMPLETED", "FAILED"]},
                "logs": {"type": "array", "items": {"$ref": "#/definitions/httptransport.logResp"}},
                "report": {"$ref": "#/definitions/httptransport.reportResp"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Data Quality Service API",
	Description:      "Upload datasets, run evaluate/clean/re-evaluate jobs and fetch their reports.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
