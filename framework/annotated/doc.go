// Package annotated adapts Go types into annotated bean classes.
//
// Go has no runtime annotations, so metadata comes from two places: struct
// tags on fields, and a Descriptor that registers constructors, methods and
// parameter annotations explicitly. The bean pipeline depends only on the
// Type, Member and Annotated abstractions defined here.
package annotated
