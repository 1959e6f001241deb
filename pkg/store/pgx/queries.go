package pgx

const entityExistsSQL = `
SELECT EXISTS (
    SELECT 1 FROM triples WHERE head_entity = $1 OR tail_entity = $1
);
`

const neighborsSQL = `
SELECT related
FROM (
    SELECT tail_entity AS related, id FROM triples WHERE head_entity = $1 AND tail_entity <> $1
    UNION ALL
    SELECT head_entity AS related, id FROM triples WHERE tail_entity = $1 AND head_entity <> $1
) n
GROUP BY related
ORDER BY MIN(id);
`

const insertTripleSQL = `
INSERT INTO triples (head_entity, relation, tail_entity)
VALUES ($1, $2, $3)
RETURNING id;
`

// Returns no row when $4 is already part of a triple.
const insertTripleGuardedSQL = `
INSERT INTO triples (head_entity, relation, tail_entity)
SELECT $1, $2, $3
WHERE NOT EXISTS (
    SELECT 1 FROM triples WHERE head_entity = $4 OR tail_entity = $4
)
RETURNING id;
`

const renameEntitySQL = `
UPDATE triples
SET head_entity = CASE WHEN head_entity = $1 THEN $2 ELSE head_entity END,
    tail_entity = CASE WHEN tail_entity = $1 THEN $2 ELSE tail_entity END,
    updated_at  = now()
WHERE head_entity = $1 OR tail_entity = $1;
`
