package sqlinline

const QInsertAsset = `--sql 020fb118-3501-43a2-8b9d-d4006232b741
insert into assets(
  id,
  job_id,
  kind,
  storage_key,
  mime,
  bytes,
  width,
  height,
  properties,
  created_at
) values (
  gen_random_uuid(),
  nullif($1::text, '')::uuid,
  $2::text,
  $3::text,
  $4::text,
  $5::bigint,
  $6::int,
  $7::int,
  $8::jsonb,
  now()
) returning id;
`

const QSelectAssetByID = `--sql f516767e-4306-4cd5-b89f-add79b17c32a
select id, coalesce(job_id::text, ''), kind, storage_key, mime, bytes, width, height, properties, created_at
from assets
where id = $1::uuid
limit 1;
`

const QListAssetsByJob = `--sql 787dc838-3e0d-4762-9fd6-53775e0bb761
select id, coalesce(job_id::text, ''), kind, storage_key, mime, bytes, width, height, properties, created_at
from assets
where job_id = $1::uuid
order by created_at asc;
`

const QListResultAssetsByJob = `--sql 026026e8-8ea4-464e-aefb-337340458892
select id, coalesce(job_id::text, ''), kind, storage_key, mime, bytes, width, height, properties, created_at
from assets
where job_id = $1::uuid
  and kind in ('RESULT', 'CONTACT_SHEET', 'COMPARISON')
order by created_at asc;
`

const QDeleteStageAssetsBefore = `--sql 23f7fbb8-2af7-4189-a995-156d739b5e9f
delete from assets
where kind = 'STAGE'
  and created_at < now() - ($1::int * interval '1 second')
returning storage_key;
`
