// Package vocab holds the IRIs of the RDF, RDFS, XSD and YAGO terms the
// build pipeline queries for.
package vocab

// Standard namespaces.
const (
	RDF  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFS = "http://www.w3.org/2000/01/rdf-schema#"
	XSD  = "http://www.w3.org/2001/XMLSchema#"

	// Yago is the base IRI of YAGO resources.
	Yago = "http://yago-knowledge.org/resource/"
)

// RDF reification and typing.
const (
	RDFType      = RDF + "type"
	RDFSubject   = RDF + "subject"
	RDFPredicate = RDF + "predicate"
	RDFObject    = RDF + "object"
)

// RDFS terms.
const (
	RDFSLabel      = RDFS + "label"
	RDFSSubClassOf = RDFS + "subClassOf"
)

// XSDString is the datatype of plain string literals.
const XSDString = XSD + "string"

// YAGO fact predicates. These appear as the rdf:predicate of reified facts.
const (
	// YagoIsCalled links an entity (fact subject) to one of its names.
	YagoIsCalled = Yago + "isCalled"

	// YagoOwns links an owner (fact subject) to the owned entity (fact object).
	YagoOwns = Yago + "owns"

	// YagoCreated links an entity (fact subject) to something it created.
	YagoCreated = Yago + "created"
)

// WordnetCompany is the YAGO class of companies, the default target
// category for discovery.
const WordnetCompany = Yago + "wordnet_company_108058098"
