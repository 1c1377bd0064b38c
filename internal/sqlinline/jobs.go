// Package sqlinline centralizes every SQL statement the service executes.
// Each statement opens with a `--sql <uuid>` marker line so queries can be
// traced from logs back to source, and a lint tool enforces the convention.
package sqlinline

const QEnqueueRenderJob = `--sql 0fcc66ce-4a21-4b8d-97be-a2e53b4b6887
insert into render_jobs(
  id,
  status,
  mode,
  spec_json,
  created_at,
  updated_at
) values (
  gen_random_uuid(),
  'QUEUED',
  $1::text,
  $2::jsonb,
  now(),
  now()
) returning id;
`

const QClaimRenderJob = `--sql 8fff2056-a38c-4273-8ca0-9c0bc0e24be1
with next_job as (
    select id
    from render_jobs
    where status = 'QUEUED'
    order by created_at asc
    for update skip locked
    limit 1
),
updated as (
    update render_jobs
    set status = 'RUNNING', updated_at = now()
    where id in (select id from next_job)
    returning id, mode, spec_json
)
select * from updated;
`

const QCompleteRenderJob = `--sql 614d907a-cc8e-4c5a-8fb6-76579d0ab48b
update render_jobs
set status = 'SUCCEEDED', error_message = null, updated_at = now()
where id = $1::uuid;
`

const QFailRenderJob = `--sql 7ae55373-0efd-4f07-8944-f0bf69b4e97d
update render_jobs
set status = 'FAILED', error_message = $2::text, updated_at = now()
where id = $1::uuid;
`

const QSelectRenderJob = `--sql 9b06b855-c2f3-4cd3-9d75-4f1d52714cee
select id, status, mode, spec_json, coalesce(error_message, ''), created_at, updated_at
from render_jobs
where id = $1::uuid
limit 1;
`

const QRequeueStaleRenderJobs = `--sql 02670aeb-fd98-4342-a41a-cd0e76dfd83e
update render_jobs
set status = 'QUEUED', updated_at = now()
where status = 'RUNNING'
  and updated_at < now() - ($1::int * interval '1 second')
returning id;
`

const QCountRenderJobsByStatus = `--sql 33ae11fc-8946-4004-aa49-7bb3d12c4796
select status, count(*)
from render_jobs
group by status;
`
