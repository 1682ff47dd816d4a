package entity

import (
	"github.com/scrypster/nedindex/internal/graph"
	"github.com/scrypster/nedindex/internal/vocab"
)

// Variable names used across the discovery and aggregation queries.
const (
	varEntity   = "entity"
	varSubclass = "subclass"
	varFact     = "fact"
	varAlias    = "alias"
	varContext  = "context"
	varAny      = "p"
)

var (
	rdfType      = graph.IRI(vocab.RDFType)
	rdfSubject   = graph.IRI(vocab.RDFSubject)
	rdfPredicate = graph.IRI(vocab.RDFPredicate)
	rdfObject    = graph.IRI(vocab.RDFObject)
)

// DirectMembersQuery selects ?entity for every entity typed as category.
func DirectMembersQuery(category string) graph.Query {
	return graph.Query{
		Select: []string{varEntity},
		Where: []graph.Pattern{
			graph.Triple(graph.Var(varEntity), rdfType, graph.IRI(category)),
		},
	}
}

// SubclassMembersQuery selects ?entity for every entity typed as a direct
// subclass of category.
func SubclassMembersQuery(category string) graph.Query {
	return graph.Query{
		Select: []string{varEntity},
		Where: []graph.Pattern{
			graph.Triple(graph.Var(varSubclass), graph.IRI(vocab.RDFSSubClassOf), graph.IRI(category)),
			graph.Triple(graph.Var(varEntity), rdfType, graph.Var(varSubclass)),
		},
	}
}

// IsCalledAliasQuery selects ?alias from reified isCalled facts whose
// subject is ?entity. Bind ?entity before running it.
func IsCalledAliasQuery() graph.Query {
	return graph.Query{
		Select: []string{varAlias},
		Where: []graph.Pattern{
			graph.Triple(graph.Var(varFact), rdfSubject, graph.Var(varEntity)),
			graph.Triple(graph.Var(varFact), rdfPredicate, graph.IRI(vocab.YagoIsCalled)),
			graph.Triple(graph.Var(varFact), rdfObject, graph.Var(varAlias)),
		},
	}
}

// LabelAliasQuery selects the rdfs:label values of ?entity, provided
// ?entity is related to category by some predicate.
func LabelAliasQuery(category string) graph.Query {
	return graph.Query{
		Select: []string{varAlias},
		Where: []graph.Pattern{
			graph.Triple(graph.Var(varEntity), graph.IRI(vocab.RDFSLabel), graph.Var(varAlias)),
			graph.Triple(graph.Var(varEntity), graph.Var(varAny), graph.IRI(category)),
		},
	}
}

// OwnsContextQuery selects the owners of ?entity from reified owns facts
// where ?entity is the object.
func OwnsContextQuery() graph.Query {
	return graph.Query{
		Select: []string{varContext},
		Where: []graph.Pattern{
			graph.Triple(graph.Var(varFact), rdfObject, graph.Var(varEntity)),
			graph.Triple(graph.Var(varFact), rdfPredicate, graph.IRI(vocab.YagoOwns)),
			graph.Triple(graph.Var(varFact), rdfSubject, graph.Var(varContext)),
		},
	}
}

// CreatedContextQuery selects what ?entity created from reified created
// facts where ?entity is the subject.
func CreatedContextQuery() graph.Query {
	return graph.Query{
		Select: []string{varContext},
		Where: []graph.Pattern{
			graph.Triple(graph.Var(varFact), rdfSubject, graph.Var(varEntity)),
			graph.Triple(graph.Var(varFact), rdfPredicate, graph.IRI(vocab.YagoCreated)),
			graph.Triple(graph.Var(varFact), rdfObject, graph.Var(varContext)),
		},
	}
}

// forEntity binds ?entity in q to the entity IRI.
func forEntity(q graph.Query, iri string) graph.Query {
	return q.Bind(varEntity, graph.IRI(iri))
}
