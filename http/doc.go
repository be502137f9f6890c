// Package http provides the request and response helpers of the inspection
// API.
//
// # Request
//
// Request wraps *http.Request:
//
//	req := gohttp.NewRequest(r)
//
//	typ  := req.Query("type")              // ?type=*app.Greeter
//	all  := req.QueryBool("disabled", false)
//	name := req.RouteParam("name")         // requires the chi router
//
// # Response
//
// Response wraps http.ResponseWriter:
//
//	res := gohttp.NewResponse(w)
//
//	res.JSON(200, data)           // raw JSON with status
//	res.Success(data)             // 200 {"data": ...}
//	res.List(items, len(items))   // 200 {"data": [...], "count": n}
//
//	// Errors
//	res.Error(400, "bad input")   // {"message": "bad input"}
//	res.NotFound()                // 404 {"message": "Not found."}
//	res.ServerError()             // 500 {"message": "Server Error."}
//	res.DeploymentError(err)      // status by code, {"code", "message", "errors"}
package http
