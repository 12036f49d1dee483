// Package docs holds the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/server/main.go
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
	"schemes": {{ marshal .Schemes }},
	"swagger": "2.0",
	"info": {
		"description": "{{escape .Description}}",
		"title": "{{.Title}}",
		"termsOfService": "http://swagger.io/terms/",
		"contact": {
			"name": "API Support",
			"url": "https://github.com/workshop/backend"
		},
		"license": {
			"name": "Apache 2.0",
			"url": "http://www.apache.org/licenses/LICENSE-2.0.html"
		},
		"version": "{{.Version}}"
	},
	"host": "{{.Host}}",
	"basePath": "{{.BasePath}}",
	"paths": {
		"/orders": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"orders"
				],
				"summary": "Create a service order",
				"operationId": "createOrder",
				"produces": [
					"application/json"
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			},
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"orders"
				],
				"summary": "List service orders",
				"operationId": "listOrders",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		},
		"/orders/{id}": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"orders"
				],
				"summary": "Get a service order",
				"operationId": "getOrder",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "id",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		},
		"/orders/{id}/inspection": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"orders"
				],
				"summary": "Record the intake inspection",
				"operationId": "recordInspection",
				"produces": [
					"application/json"
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "id",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			},
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"orders"
				],
				"summary": "Get the intake inspection",
				"operationId": "getInspection",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "id",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		},
		"/orders/{id}/transition": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"orders"
				],
				"summary": "Move an order to its next status",
				"operationId": "transitionOrder",
				"produces": [
					"application/json"
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "id",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		},
		"/orders/{id}/mechanic": {
			"put": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"orders"
				],
				"summary": "Assign the mechanic of an order",
				"operationId": "assignMechanic",
				"produces": [
					"application/json"
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "id",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		},
		"/orders/{id}/diagnosis": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"orders"
				],
				"summary": "Record the diagnosis of an order",
				"operationId": "recordDiagnosis",
				"produces": [
					"application/json"
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "id",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		},
		"/orders/{id}/details": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"orders"
				],
				"summary": "Add a detail line to an order",
				"operationId": "addOrderDetail",
				"produces": [
					"application/json"
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "id",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		},
		"/orders/{id}/payment": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"payments"
				],
				"summary": "Record the payment of a finished order",
				"operationId": "recordPayment",
				"produces": [
					"application/json"
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "id",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					},
					{
						"type": "string",
						"description": "Retries with the same key return the stored payment",
						"name": "Idempotency-Key",
						"in": "header"
					}
				],
				"responses": {
					"201": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			},
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"payments"
				],
				"summary": "Get the payment of an order",
				"operationId": "getPayment",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "id",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		},
		"/order-details/{id}/price": {
			"put": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"orders"
				],
				"summary": "Price a detail line",
				"operationId": "setOrderDetailPrice",
				"produces": [
					"application/json"
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "id",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		},
		"/order-details/{id}/transition": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"orders"
				],
				"summary": "Move a detail line to its next status",
				"operationId": "transitionOrderDetail",
				"produces": [
					"application/json"
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "id",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		},
		"/payments": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"payments"
				],
				"summary": "List the payments of a business date",
				"operationId": "listPayments",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		},
		"/closings/daily": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"closings"
				],
				"summary": "Close a business date",
				"operationId": "closeDay",
				"produces": [
					"application/json"
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		},
		"/closings/daily/{date}": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"closings"
				],
				"summary": "Get the closing status of a date",
				"operationId": "getDailyClosingStatus",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "date",
						"name": "date",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		},
		"/closings/monthly": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"closings"
				],
				"summary": "Close a month",
				"operationId": "closeMonth",
				"produces": [
					"application/json"
				],
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"description": "Request body",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		},
		"/closings/monthly/{yearMonth}": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"closings"
				],
				"summary": "Get the closing status of a month",
				"operationId": "getMonthlyClosingStatus",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "yearMonth",
						"name": "yearMonth",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		},
		"/catalog/services": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"directory"
				],
				"summary": "List the service catalog",
				"operationId": "listCatalogServices",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		},
		"/vehicles/lookup": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"directory"
				],
				"summary": "Look up a vehicle by plate",
				"operationId": "lookupVehicle",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		},
		"/admin/outbox/stats": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"admin"
				],
				"summary": "Count outbox entries by status",
				"operationId": "getOutboxStats",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		},
		"/admin/outbox/dead": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"admin"
				],
				"summary": "List dead outbox entries",
				"operationId": "listDeadOutboxEntries",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		},
		"/admin/outbox/dead/retry-all": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"admin"
				],
				"summary": "Requeue every dead outbox entry",
				"operationId": "retryAllDeadOutboxEntries",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		},
		"/admin/outbox/dead/{id}/retry": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"admin"
				],
				"summary": "Requeue one dead outbox entry",
				"operationId": "retryDeadOutboxEntry",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"description": "id",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"responses": {
					"200": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		},
		"/admin/system/info": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"tags": [
					"admin"
				],
				"summary": "Get build and runtime information",
				"operationId": "getSystemInfo",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "Success envelope",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"400": {
						"description": "Validation error",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"401": {
						"description": "Missing or invalid token",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					},
					"403": {
						"description": "Role not allowed",
						"schema": {
							"$ref": "#/definitions/dto.Response"
						}
					}
				}
			}
		}
	},
	"definitions": {
		"dto.ErrorInfo": {
			"type": "object",
			"properties": {
				"code": {
					"type": "string",
					"example": "ERR_VALIDATION"
				},
				"message": {
					"type": "string"
				},
				"request_id": {
					"type": "string"
				},
				"trace_id": {
					"type": "string"
				},
				"fields": {
					"type": "array",
					"items": {
						"type": "object"
					}
				},
				"details": {
					"type": "object"
				}
			}
		},
		"dto.Meta": {
			"type": "object",
			"properties": {
				"total": {
					"type": "integer"
				},
				"page": {
					"type": "integer"
				},
				"page_size": {
					"type": "integer"
				},
				"total_pages": {
					"type": "integer"
				}
			}
		},
		"dto.Response": {
			"type": "object",
			"properties": {
				"success": {
					"type": "boolean"
				},
				"data": {},
				"error": {
					"$ref": "#/definitions/dto.ErrorInfo"
				},
				"meta": {
					"$ref": "#/definitions/dto.Meta"
				}
			}
		}
	},
	"securityDefinitions": {
		"BearerAuth": {
			"description": "Bearer token authentication. Format: \"Bearer {token}\"",
			"type": "apiKey",
			"name": "Authorization",
			"in": "header"
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Workshop Backend API",
	Description:      "Repair shop order lifecycle, payments and closing reconciliation",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
